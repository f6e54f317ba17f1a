package migrations

import (
	"fmt"

	"github.com/merklebot/storage/internal/dbx"
)

// TenantDDL returns the statements that create one tenant's tables inside an
// already-created schema. Executed in order inside the provisioning
// transaction.
func TenantDDL(schema dbx.Schema) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
			id         BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, schema.Qualify("users")),

		fmt.Sprintf(`CREATE TABLE %s (
			id           BIGSERIAL PRIMARY KEY,
			hashed_token VARCHAR(256) NOT NULL,
			expiry       TIMESTAMPTZ,
			owner_id     BIGINT NOT NULL REFERENCES %s (id)
		)`, schema.Qualify("tokens"), schema.Qualify("users")),

		fmt.Sprintf(`CREATE TABLE %s (
			id       BIGSERIAL PRIMARY KEY,
			aes_key  TEXT NOT NULL,
			owner_id BIGINT NOT NULL REFERENCES %s (id)
		)`, schema.Qualify("keys"), schema.Qualify("users")),

		fmt.Sprintf(`CREATE TABLE %s (
			id                  BIGSERIAL PRIMARY KEY,
			filename            VARCHAR(256),
			origin              TEXT,
			ipfs_cid            VARCHAR(256),
			ipfs_file_size      BIGINT NOT NULL DEFAULT 0,
			encrypted_file_cid  VARCHAR(256),
			encrypted_file_size BIGINT NOT NULL DEFAULT 0,
			availability        VARCHAR(16) NOT NULL DEFAULT 'pending',
			is_instant          BOOLEAN NOT NULL DEFAULT true,
			is_filecoin         BOOLEAN NOT NULL DEFAULT false,
			key_id              BIGINT,
			instant_till        TIMESTAMPTZ,
			owner_id            BIGINT NOT NULL REFERENCES %s (id),
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, schema.Qualify("contents"), schema.Qualify("users")),

		fmt.Sprintf(`CREATE TABLE %s (
			id         BIGSERIAL PRIMARY KEY,
			content_id BIGINT NOT NULL REFERENCES %s (id),
			kind       VARCHAR(16) NOT NULL,
			status     VARCHAR(16) NOT NULL,
			config     JSONB NOT NULL DEFAULT '{}'
		)`, schema.Qualify("jobs"), schema.Qualify("contents")),

		fmt.Sprintf(`CREATE TABLE %s (
			id          BIGSERIAL PRIMARY KEY,
			kind        VARCHAR(16) NOT NULL,
			content_id  BIGINT NOT NULL REFERENCES %s (id),
			assignee_id BIGINT NOT NULL REFERENCES %s (id),
			UNIQUE (content_id, assignee_id, kind)
		)`, schema.Qualify("permissions"), schema.Qualify("contents"), schema.Qualify("users")),
	}
}
