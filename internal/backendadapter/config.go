// Package backendadapter implements the Backend Adapters (C1): fetching a
// raw Terraform state document from whichever object store a project's
// workspace is configured against.
package backendadapter

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Kind tags which backend a Config describes.
type Kind string

const (
	KindLocal  Kind = "local"
	KindS3     Kind = "s3"
	KindAzure  Kind = "azurerm"
	KindGCS    Kind = "gcs"
	KindRemote Kind = "remote"
)

// Config is the tagged union described in spec §4.1. Only the fields for
// the active Type are meaningful; the rest are zero values.
type Config struct {
	Type Kind `mapstructure:"type"`

	// local
	Path string `mapstructure:"path"`

	// s3
	Bucket       string `mapstructure:"bucket"`
	Key          string `mapstructure:"key"`
	Region       string `mapstructure:"region"`
	Profile      string `mapstructure:"profile"`
	Endpoint     string `mapstructure:"endpoint"`
	SessionToken string `mapstructure:"session_token"`

	// azurerm
	StorageAccount   string `mapstructure:"storage_account"`
	Container        string `mapstructure:"container"`
	SASToken         string `mapstructure:"sas_token"`
	ConnectionString string `mapstructure:"connection_string"`

	// gcs
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Project         string `mapstructure:"project"`

	// remote (Terraform Cloud)
	Hostname     string `mapstructure:"hostname"`
	Organization string `mapstructure:"organization"`
	Workspace    string `mapstructure:"workspace"`
	Token        string `mapstructure:"token"`
}

// DecodeConfig decodes an opaque backend_config blob (as stored in
// StateSnapshot.BackendConfig) into a typed Config.
func DecodeConfig(raw map[string]any) (*Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("build backend config decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode backend config: %w", err)
	}
	if cfg.Type == "" {
		return nil, fmt.Errorf("backend config missing required field %q", "type")
	}
	return &cfg, nil
}

// ErrorKind classifies a BackendError for HTTP status mapping (spec §7).
type ErrorKind string

const (
	ErrTransport     ErrorKind = "transport"
	ErrAuthorization ErrorKind = "authorization"
	ErrNotFound      ErrorKind = "not_found"
	ErrUnsupported   ErrorKind = "unsupported"
	ErrConfiguration ErrorKind = "configuration"
	ErrTimeout       ErrorKind = "timeout"
)

// DefaultFetchTimeout bounds how long an adapter's outbound call to a
// backend may run before Fetch gives up and reports ErrTimeout.
const DefaultFetchTimeout = 30 * time.Second

// BackendError is the single error shape every adapter maps into, per spec §4.1.
type BackendError struct {
	Kind  ErrorKind
	Cause error
}

func (e *BackendError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("backend error (%s)", e.Kind)
	}
	return fmt.Sprintf("backend error (%s): %v", e.Kind, e.Cause)
}

func (e *BackendError) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, format string, args ...any) *BackendError {
	return &BackendError{Kind: kind, Cause: fmt.Errorf(format, args...)}
}

// Result is what every adapter returns on success.
type Result struct {
	BackendTag string
	SizeBytes  int64
	RawBytes   []byte
}
