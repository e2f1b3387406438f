package storage

import "errors"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Prefix scopes the content tree inside the bucket, e.g. "kb/".
	Prefix string
}

// Enabled reports whether an endpoint is configured.
func (c *MinIOConfig) Enabled() bool {
	return c != nil && c.Endpoint != ""
}

func (c *MinIOConfig) validate() error {
	if !c.Enabled() {
		return errors.New("minio config missing")
	}
	if c.Bucket == "" {
		return errors.New("minio bucket missing")
	}
	return nil
}
