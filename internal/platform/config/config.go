package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultRequestTimeout       = 60 * time.Second
	defaultMongoDatabase        = "flowershop"
	defaultMongoConnectTimeout  = 10 * time.Second
	defaultMongoTxTimeout       = 5 * time.Second
	defaultStoragePublicBase    = "https://storage.googleapis.com"
	defaultStoragePrefix        = "flowers"
	defaultMailDriver           = MailDriverSMTP
	defaultSMTPPort             = 587
	defaultSecurityEnvironment  = "local"
	defaultBcryptCost           = 10
	defaultPasswordLength       = 12
	defaultActorHeader          = "X-Actor-ID"
	defaultResetLimit           = 3
	defaultResetWindow          = 15 * time.Minute
	defaultIdempotencyBackend   = IdempotencyBackendMemory
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200

	// MailDriverSMTP delivers mail directly through an SMTP relay.
	MailDriverSMTP = "smtp"
	// MailDriverPubSub hands mail to a Pub/Sub topic consumed by a mail worker.
	MailDriverPubSub = "pubsub"

	// IdempotencyBackendMemory keeps idempotency records in process memory.
	IdempotencyBackendMemory = "memory"
	// IdempotencyBackendFirestore stores idempotency records in Firestore.
	IdempotencyBackendFirestore = "firestore"
	// IdempotencyBackendRedis stores idempotency records in Redis.
	IdempotencyBackendRedis = "redis"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	GCP         GCPConfig
	Mongo       MongoConfig
	Firestore   FirestoreConfig
	Storage     StorageConfig
	Mail        MailConfig
	Security    SecurityConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// GCPConfig holds the default Google Cloud project shared by cloud clients.
type GCPConfig struct {
	ProjectID string
	// CredentialsFile points at a service account key. Empty uses application default credentials.
	CredentialsFile string
}

// MongoConfig stores document database parameters.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	TxTimeout      time.Duration
}

// FirestoreConfig stores Firestore parameters used by the idempotency store.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig describes where flower images are uploaded.
type StorageConfig struct {
	AssetsBucket  string
	PublicBaseURL string
	ObjectPrefix  string
}

// MailConfig selects and configures the credential mail transport.
type MailConfig struct {
	Driver       string
	From         string
	LoginPageURL string
	SMTP         SMTPConfig
	PubSub       PubSubConfig
}

// SMTPConfig configures the SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// PubSubConfig configures the mail topic.
type PubSubConfig struct {
	ProjectID string
	Topic     string
}

// SecurityConfig groups credential generation and actor attribution settings.
type SecurityConfig struct {
	Environment    string
	BcryptCost     int
	PasswordLength int
	ActorHeader    string
	// ResetLimit caps admin password resets per user within ResetWindow. Zero disables it.
	ResetLimit  int
	ResetWindow time.Duration
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Backend          string
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets resolved to empty values.
type MissingSecretsError struct {
	names []string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	redacted := make([]string, 0, len(e.names))
	for _, name := range e.names {
		redacted = append(redacted, redactSecretName(name))
	}
	sort.Strings(redacted)
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(redacted, ", "))
}

// Names returns the underlying secret identifiers.
func (e *MissingSecretsError) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map that takes precedence over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks config field names (e.g. "Mail.SMTP.Password") as mandatory.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// EnvironmentValues returns the effective environment map using the same precedence as Load
// (dotenv < OS env < explicit map) so callers can bootstrap the secret fetcher first.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	values, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = make(map[string]string)
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[strings.TrimSpace(key)] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}
	return values, nil
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnvValues[key]
		return value, ok
	}

	cfg := Config{
		Server: ServerConfig{
			Port:           stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:    durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "API_SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		GCP: GCPConfig{
			ProjectID:       stringWithDefault(lookup, "API_GCP_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "API_GCP_CREDENTIALS_FILE", ""),
		},
		Mongo: MongoConfig{
			URI:            stringWithDefault(lookup, "API_MONGO_URI", ""),
			Database:       stringWithDefault(lookup, "API_MONGO_DATABASE", defaultMongoDatabase),
			ConnectTimeout: durationWithDefault(lookup, "API_MONGO_CONNECT_TIMEOUT", defaultMongoConnectTimeout),
			TxTimeout:      durationWithDefault(lookup, "API_MONGO_TX_TIMEOUT", defaultMongoTxTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			AssetsBucket:  stringWithDefault(lookup, "API_STORAGE_ASSETS_BUCKET", ""),
			PublicBaseURL: strings.TrimRight(stringWithDefault(lookup, "API_STORAGE_PUBLIC_BASE_URL", defaultStoragePublicBase), "/"),
			ObjectPrefix:  strings.Trim(stringWithDefault(lookup, "API_STORAGE_OBJECT_PREFIX", defaultStoragePrefix), "/"),
		},
		Mail: MailConfig{
			Driver:       strings.ToLower(stringWithDefault(lookup, "API_MAIL_DRIVER", defaultMailDriver)),
			From:         stringWithDefault(lookup, "API_MAIL_FROM", ""),
			LoginPageURL: stringWithDefault(lookup, "API_MAIL_LOGIN_PAGE_URL", ""),
			SMTP: SMTPConfig{
				Host:     stringWithDefault(lookup, "API_MAIL_SMTP_HOST", ""),
				Port:     intWithDefault(lookup, "API_MAIL_SMTP_PORT", defaultSMTPPort),
				Username: stringWithDefault(lookup, "API_MAIL_SMTP_USERNAME", ""),
				Password: stringWithDefault(lookup, "API_MAIL_SMTP_PASSWORD", ""),
			},
			PubSub: PubSubConfig{
				ProjectID: stringWithDefault(lookup, "API_MAIL_PUBSUB_PROJECT_ID", ""),
				Topic:     stringWithDefault(lookup, "API_MAIL_PUBSUB_TOPIC", ""),
			},
		},
		Security: SecurityConfig{
			Environment:    strings.ToLower(stringWithDefault(lookup, "API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment)),
			BcryptCost:     intWithDefault(lookup, "API_SECURITY_BCRYPT_COST", defaultBcryptCost),
			PasswordLength: intWithDefault(lookup, "API_SECURITY_PASSWORD_LENGTH", defaultPasswordLength),
			ActorHeader:    stringWithDefault(lookup, "API_SECURITY_ACTOR_HEADER", defaultActorHeader),
			ResetLimit:     intWithDefault(lookup, "API_SECURITY_RESET_LIMIT", defaultResetLimit),
			ResetWindow:    durationWithDefault(lookup, "API_SECURITY_RESET_WINDOW", defaultResetWindow),
		},
		Idempotency: IdempotencyConfig{
			Backend:          strings.ToLower(stringWithDefault(lookup, "API_IDEMPOTENCY_BACKEND", defaultIdempotencyBackend)),
			Header:           stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
			RedisAddr:        stringWithDefault(lookup, "API_IDEMPOTENCY_REDIS_ADDR", ""),
			RedisPassword:    stringWithDefault(lookup, "API_IDEMPOTENCY_REDIS_PASSWORD", ""),
			RedisDB:          intWithDefault(lookup, "API_IDEMPOTENCY_REDIS_DB", 0),
		},
	}

	// Cloud clients fall back to the shared project.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.GCP.ProjectID
	}
	if cfg.Mail.PubSub.ProjectID == "" {
		cfg.Mail.PubSub.ProjectID = cfg.GCP.ProjectID
	}

	resolved := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Mongo.URI", &cfg.Mongo.URI},
		{"Mail.SMTP.Password", &cfg.Mail.SMTP.Password},
		{"Idempotency.RedisPassword", &cfg.Idempotency.RedisPassword},
	}
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}

	return cfg, nil
}

func defaultOptions() loaderOptions {
	return loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string
	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Mongo.URI) == "" {
		missing = append(missing, "Mongo.URI")
	}
	if strings.TrimSpace(cfg.Mongo.Database) == "" {
		missing = append(missing, "Mongo.Database")
	}
	if cfg.Mongo.TxTimeout <= 0 {
		missing = append(missing, "Mongo.TxTimeout")
	}
	if cfg.Storage.AssetsBucket == "" {
		missing = append(missing, "Storage.AssetsBucket")
	}
	if strings.TrimSpace(cfg.Mail.From) == "" {
		missing = append(missing, "Mail.From")
	}
	switch cfg.Mail.Driver {
	case MailDriverSMTP:
		if cfg.Mail.SMTP.Host == "" {
			missing = append(missing, "Mail.SMTP.Host")
		}
		if cfg.Mail.SMTP.Port <= 0 {
			missing = append(missing, "Mail.SMTP.Port")
		}
	case MailDriverPubSub:
		if cfg.Mail.PubSub.ProjectID == "" {
			missing = append(missing, "Mail.PubSub.ProjectID")
		}
		if cfg.Mail.PubSub.Topic == "" {
			missing = append(missing, "Mail.PubSub.Topic")
		}
	default:
		missing = append(missing, "Mail.Driver")
	}
	if cfg.Security.BcryptCost < 4 || cfg.Security.BcryptCost > 31 {
		missing = append(missing, "Security.BcryptCost")
	}
	if cfg.Security.PasswordLength < 8 {
		missing = append(missing, "Security.PasswordLength")
	}
	if strings.TrimSpace(cfg.Security.ActorHeader) == "" {
		missing = append(missing, "Security.ActorHeader")
	}
	switch cfg.Idempotency.Backend {
	case IdempotencyBackendMemory:
	case IdempotencyBackendFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
	case IdempotencyBackendRedis:
		if cfg.Idempotency.RedisAddr == "" {
			missing = append(missing, "Idempotency.RedisAddr")
		}
	default:
		missing = append(missing, "Idempotency.Backend")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}
	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	var missing []string
	seen := make(map[string]struct{})
	for _, name := range required {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if resolved[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{names: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}
