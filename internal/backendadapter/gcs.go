package backendadapter

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// FetchGCS downloads a state object from Google Cloud Storage.
func FetchGCS(ctx context.Context, cfg *Config) (*Result, error) {
	if cfg.Bucket == "" || cfg.Prefix == "" {
		return nil, newError(ErrConfiguration, "gcs backend requires bucket and prefix")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, newError(ErrConfiguration, "build gcs client: %w", err)
	}
	defer client.Close()

	reader, err := client.Bucket(cfg.Bucket).Object(cfg.Prefix).NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, newError(ErrNotFound, "object gs://%s/%s not found", cfg.Bucket, cfg.Prefix)
		}
		return nil, newError(ErrTransport, "open gcs object reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, newError(ErrTransport, "read gcs object body: %w", err)
	}

	return &Result{BackendTag: string(KindGCS), SizeBytes: int64(len(data)), RawBytes: data}, nil
}
