package backendadapter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// FetchAzure downloads a state blob from Azure Blob Storage, authenticating
// with either a connection string or a SAS token against the container's
// public endpoint.
func FetchAzure(ctx context.Context, cfg *Config) (*Result, error) {
	if cfg.Container == "" || cfg.Key == "" {
		return nil, newError(ErrConfiguration, "azurerm backend requires container and key")
	}
	if cfg.ConnectionString == "" && cfg.SASToken == "" {
		return nil, newError(ErrConfiguration, "azurerm backend requires connection_string or sas_token")
	}

	var client *azblob.Client
	var err error
	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	} else {
		if cfg.StorageAccount == "" {
			return nil, newError(ErrConfiguration, "azurerm backend requires storage_account when using sas_token")
		}
		sas := strings.TrimPrefix(cfg.SASToken, "?")
		accountURL := fmt.Sprintf("https://%s.blob.core.windows.net?%s", cfg.StorageAccount, sas)
		client, err = azblob.NewClientWithNoCredential(accountURL, nil)
	}
	if err != nil {
		return nil, newError(ErrConfiguration, "build azure blob client: %w", err)
	}

	resp, err := client.DownloadStream(ctx, cfg.Container, cfg.Key, nil)
	if err != nil {
		return nil, newError(ErrTransport, "download azure blob %s/%s: %w", cfg.Container, cfg.Key, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, newError(ErrTransport, "read azure blob body: %w", err)
	}

	return &Result{BackendTag: string(KindAzure), SizeBytes: int64(buf.Len()), RawBytes: buf.Bytes()}, nil
}
