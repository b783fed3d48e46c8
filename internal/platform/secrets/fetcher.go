package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const scheme = "secret"

var newSecretManager = func(ctx context.Context, opts ...option.ClientOption) (*secretmanager.Client, error) {
	return secretmanager.NewClient(ctx, opts...)
}

var errNoRemote = errors.New("secret manager not configured")

type versionAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// Fetcher resolves the secret:// references found in flower-shop configuration, such as
// API_MONGO_URI=secret://mongo-uri. The latest version is read from Secret Manager in the
// configured project. Without a project, or while Secret Manager refuses access, the value
// comes from a dotenv file where secret://mongo-uri is the key MONGO_URI.
type Fetcher struct {
	remote  versionAccessor
	release func() error
	project string
	log     *zap.Logger
	local   *dotenvFile

	mu     sync.Mutex
	values map[string]string

	latency metric.Float64Histogram
}

type settings struct {
	log        *zap.Logger
	project    string
	file       string
	remote     versionAccessor
	clientOpts []option.ClientOption
}

// Option customises NewFetcher.
type Option func(*settings)

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithDefaultProject names the Secret Manager project. Without one only the fallback file is read.
func WithDefaultProject(projectID string) Option {
	return func(s *settings) { s.project = strings.TrimSpace(projectID) }
}

// WithFallbackFile sets the dotenv file consulted when Secret Manager cannot answer.
// An empty path disables the fallback.
func WithFallbackFile(path string) Option {
	return func(s *settings) { s.file = strings.TrimSpace(path) }
}

// WithClientOptions is passed to the Secret Manager client, typically a credentials file.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *settings) { s.clientOpts = append(s.clientOpts, opts...) }
}

func withAccessor(remote versionAccessor) Option {
	return func(s *settings) { s.remote = remote }
}

// NewFetcher never fails on a missing Secret Manager client; it logs and serves the fallback file.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	s := settings{log: zap.NewNop(), file: ".secrets.local"}
	for _, opt := range opts {
		opt(&s)
	}

	f := &Fetcher{
		project: s.project,
		log:     s.log,
		local:   &dotenvFile{path: s.file},
		values:  make(map[string]string),
	}
	latency, err := otel.GetMeterProvider().
		Meter("github.com/flowershop/admin-api/internal/platform/secrets").
		Float64Histogram("secrets.resolve.duration",
			metric.WithUnit("ms"),
			metric.WithDescription("Time to resolve a configuration secret by source"))
	if err != nil {
		s.log.Warn("secrets: latency histogram unavailable", zap.Error(err))
	}
	f.latency = latency

	switch {
	case f.project == "":
	case s.remote != nil:
		f.remote = s.remote
	default:
		client, err := newSecretManager(ctx, s.clientOpts...)
		if err != nil {
			s.log.Warn("secrets: secret manager unavailable, using fallback file only", zap.Error(err))
			break
		}
		f.remote = client
		f.release = client.Close
	}
	return f, nil
}

// Close shuts the Secret Manager client down if NewFetcher opened it.
func (f *Fetcher) Close() error {
	if f.release == nil {
		return nil
	}
	return f.release()
}

// Resolve returns the value behind ref. Each secret is fetched at most once per process.
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	start := time.Now()
	name, err := secretName(ref)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	value, ok := f.values[name]
	f.mu.Unlock()
	if ok {
		f.observe(ctx, start, "cache")
		return value, nil
	}

	source := "remote"
	value, err = f.access(ctx, name)
	if err != nil {
		if !errors.Is(err, errNoRemote) && !refused(err) {
			f.observe(ctx, start, "error")
			return "", fmt.Errorf("secrets: %s: %w", name, err)
		}
		f.log.Debug("secrets: reading fallback file", zap.String("secret", name), zap.Error(err))
		source = "fallback"
		if value, ok = f.local.lookup(envKey(name), f.log); !ok {
			f.observe(ctx, start, "error")
			return "", fmt.Errorf("secrets: %s not found in fallback file", name)
		}
	}

	f.mu.Lock()
	f.values[name] = value
	f.mu.Unlock()
	f.observe(ctx, start, source)
	return value, nil
}

func (f *Fetcher) access(ctx context.Context, name string) (string, error) {
	if f.remote == nil {
		return "", errNoRemote
	}
	resource := "projects/" + f.project + "/secrets/" + name + "/versions/latest"
	resp, err := f.remote.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("empty payload for %s", resource)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (f *Fetcher) observe(ctx context.Context, start time.Time, source string) {
	if f.latency == nil {
		return
	}
	ms := float64(time.Since(start)) / float64(time.Millisecond)
	f.latency.Record(ctx, ms, metric.WithAttributes(attribute.String("source", source)))
}

// dotenvFile is read on first use; a missing file behaves like an empty one.
type dotenvFile struct {
	path string
	once sync.Once
	vals map[string]string
	err  error
}

func (d *dotenvFile) lookup(key string, log *zap.Logger) (string, bool) {
	d.once.Do(func() {
		if d.path == "" {
			return
		}
		raw, err := godotenv.Read(d.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			d.err = err
			return
		}
		d.vals = make(map[string]string, len(raw))
		for k, v := range raw {
			d.vals[strings.ToUpper(strings.TrimSpace(k))] = v
		}
	})
	if d.err != nil {
		log.Warn("secrets: fallback file unreadable", zap.String("path", d.path), zap.Error(d.err))
		return "", false
	}
	v, ok := d.vals[key]
	return v, ok
}

// secretName extracts the Secret Manager name from secret://<name>. Config has already
// rewritten sm:// references by the time they arrive here.
func secretName(ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("secrets: invalid reference %q: %w", ref, err)
	}
	if u.Scheme != scheme {
		return "", fmt.Errorf("secrets: reference %q is not a secret:// url", ref)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("secrets: reference %q carries unsupported parameters", ref)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" {
		return "", fmt.Errorf("secrets: reference %q names no secret", ref)
	}
	return name, nil
}

// envKey maps a secret name to its fallback key: mongo/uri and mongo-uri both become MONGO_URI.
func envKey(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		default:
			return '_'
		}
	}, name)
}

// refused reports Secret Manager answers that mean "cannot ask right now" rather than "no such secret".
func refused(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded:
		return true
	}
	return false
}
