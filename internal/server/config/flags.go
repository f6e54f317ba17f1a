package config

import (
	"flag"
	"os"
	"time"

	"github.com/merklebot/storage/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
// Only the flags listed here are parsed; everything else in os.Args is left
// for other packages via flagx.FilterArgs.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-t", "-self", "-ipfs", "-custody", "-custody-key", "-archive",
		"-s3-region", "-s3-endpoint", "-s3-access-key", "-s3-secret-key", "-s3-bucket",
		"-presign-ttl", "-outbound-timeout", "-min-pack-size", "-max-pack-size",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AdminToken, "t", config.AdminToken, "admin token for the internal API")
	fs.StringVar(&config.SelfURL, "self", config.SelfURL, "externally reachable base URL")
	fs.StringVar(&config.IpfsAPIURL, "ipfs", config.IpfsAPIURL, "IPFS node API URL")
	fs.StringVar(&config.CustodyURL, "custody", config.CustodyURL, "custody service URL")
	fs.StringVar(&config.CustodyAPIKey, "custody-key", config.CustodyAPIKey, "custody service API key")
	fs.StringVar(&config.ArchiveURL, "archive", config.ArchiveURL, "archive manager URL")
	fs.StringVar(&config.S3Region, "s3-region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3Endpoint, "s3-endpoint", config.S3Endpoint, "S3 base endpoint")
	fs.StringVar(&config.S3AccessKey, "s3-access-key", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretAccessKey, "s3-secret-key", config.S3SecretAccessKey, "S3 secret access key")
	fs.StringVar(&config.S3Bucket, "s3-bucket", config.S3Bucket, "S3 bucket name")

	presignTTL := fs.Int("presign-ttl", int(config.PresignTTL.Minutes()), "presigned URL TTL (in minutes)")
	outboundTimeout := fs.Int("outbound-timeout", int(config.OutboundTimeout.Seconds()), "outbound call timeout (in seconds)")

	fs.Int64Var(&config.MinPackSize, "min-pack-size", config.MinPackSize, "minimum pack size (bytes)")
	fs.Int64Var(&config.MaxPackSize, "max-pack-size", config.MaxPackSize, "maximum pack size (bytes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.PresignTTL = time.Duration(*presignTTL) * time.Minute
	config.OutboundTimeout = time.Duration(*outboundTimeout) * time.Second
}
