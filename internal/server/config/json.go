package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/merklebot/storage/internal/flagx"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files; values present in the file overwrite the defaults.
type JsonConfig struct {
	EndpointAddr string `json:"endpoint_addr"`
	DatabaseDSN  string `json:"database_dsn"`
	AdminToken   string `json:"admin_token"`

	SelfURL       string `json:"self_url"`
	IpfsAPIURL    string `json:"ipfs_api_url"`
	CustodyURL    string `json:"custody_url"`
	CustodyAPIKey string `json:"custody_api_key"`
	ArchiveURL    string `json:"archive_url"`

	S3Region          string `json:"s3_region"`
	S3Endpoint        string `json:"s3_endpoint"`
	S3AccessKey       string `json:"s3_access_key"`
	S3SecretAccessKey string `json:"s3_secret_access_key"`
	S3Bucket          string `json:"s3_bucket"`

	PresignTTLMinutes      int `json:"presign_ttl_minutes"`
	OutboundTimeoutSeconds int `json:"outbound_timeout_seconds"`

	MinPackSize int64  `json:"min_pack_size"`
	MaxPackSize int64  `json:"max_pack_size"`
	PackCutover string `json:"pack_cutover"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path is given via the -c or -config flags; if
// neither is set, no JSON file is loaded. Invalid files panic at startup.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIfNotEmpty(&config.EndpointAddr, c.EndpointAddr)
	setIfNotEmpty(&config.DatabaseDSN, c.DatabaseDSN)
	setIfNotEmpty(&config.AdminToken, c.AdminToken)
	setIfNotEmpty(&config.SelfURL, c.SelfURL)
	setIfNotEmpty(&config.IpfsAPIURL, c.IpfsAPIURL)
	setIfNotEmpty(&config.CustodyURL, c.CustodyURL)
	setIfNotEmpty(&config.CustodyAPIKey, c.CustodyAPIKey)
	setIfNotEmpty(&config.ArchiveURL, c.ArchiveURL)
	setIfNotEmpty(&config.S3Region, c.S3Region)
	setIfNotEmpty(&config.S3Endpoint, c.S3Endpoint)
	setIfNotEmpty(&config.S3AccessKey, c.S3AccessKey)
	setIfNotEmpty(&config.S3SecretAccessKey, c.S3SecretAccessKey)
	setIfNotEmpty(&config.S3Bucket, c.S3Bucket)

	if c.PresignTTLMinutes > 0 {
		config.PresignTTL = time.Duration(c.PresignTTLMinutes) * time.Minute
	}
	if c.OutboundTimeoutSeconds > 0 {
		config.OutboundTimeout = time.Duration(c.OutboundTimeoutSeconds) * time.Second
	}
	if c.MinPackSize > 0 {
		config.MinPackSize = c.MinPackSize
	}
	if c.MaxPackSize > 0 {
		config.MaxPackSize = c.MaxPackSize
	}
	if c.PackCutover != "" {
		cutover, err := time.Parse(time.RFC3339, c.PackCutover)
		if err != nil {
			panic(err)
		}
		config.PackCutover = cutover
	}
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
