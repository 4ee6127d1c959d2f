package blob

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Environment variables:
//
//	OTS_BLOB_DRIVER=memory|fs|s3 (default fs)
//	OTS_BLOB_FS_ROOT=<dir> (fs driver, default ./data/blobs)
//	OTS_BLOB_S3_REGION=<region> (default us-east-1)
//	OTS_BLOB_S3_ENDPOINT=<url> (optional, for MinIO)
//	OTS_BLOB_S3_PATH_STYLE=true|false (default false)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY (default credentials chain)

// OpenFromEnv constructs the blob store selected by the process environment.
func OpenFromEnv(ctx context.Context) (Store, error) {
	driver := strings.ToLower(os.Getenv("OTS_BLOB_DRIVER"))
	switch driver {
	case "", "fs":
		root := os.Getenv("OTS_BLOB_FS_ROOT")
		if root == "" {
			root = "./data/blobs"
		}
		return NewFS(root)
	case "memory":
		return NewMemory(), nil
	case "s3":
		return NewS3(ctx, S3Config{
			Region:    os.Getenv("OTS_BLOB_S3_REGION"),
			Endpoint:  os.Getenv("OTS_BLOB_S3_ENDPOINT"),
			PathStyle: strings.EqualFold(os.Getenv("OTS_BLOB_S3_PATH_STYLE"), "true"),
		})
	default:
		return nil, fmt.Errorf("blob: unknown driver %q", driver)
	}
}
