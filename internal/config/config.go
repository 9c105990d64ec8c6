package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/resize/internal/errors"
	"github.com/vango-dev/resize/pkg/channel"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "resize.json"

	// DefaultServer is the server used when neither the file nor a flag
	// names one.
	DefaultServer = "http://localhost:8080"

	// DefaultResizePath is the resize form action. {id} is replaced by the
	// escaped instance ID.
	DefaultResizePath = "/resize/{id}"

	// DefaultRegionPath is the region switch endpoint.
	DefaultRegionPath = "/region"

	// DefaultMetricsNamespace prefixes every exported metric.
	DefaultMetricsNamespace = "resize"
)

// DefaultTypes is the instance-type list offered when resize.json sets none.
var DefaultTypes = []string{
	"t3.nano", "t3.micro", "t3.small", "t3.medium", "t3.large",
	"m5.large", "m5.xlarge", "m5.2xlarge",
	"c5.large", "c5.xlarge",
	"r5.large", "r5.xlarge",
}

// Config represents the complete resize.json configuration.
type Config struct {
	// Server is the base URL of the instance page server.
	Server string `json:"server,omitempty"`

	// Instance is the ID of the instance to operate on.
	Instance string `json:"instance,omitempty"`

	// ResizePath is the resize form action, relative to the instance page.
	ResizePath string `json:"resizePath,omitempty"`

	// RegionPath is the region switch endpoint, relative to Server.
	RegionPath string `json:"regionPath,omitempty"`

	// Types lists the instance types offered for a change.
	Types []string `json:"types,omitempty"`

	// Channel contains resize channel settings.
	Channel ChannelConfig `json:"channel,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Transcripts contains operation transcript storage settings.
	Transcripts TranscriptsConfig `json:"transcripts,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ChannelConfig contains resize channel settings. Durations are strings
// such as "10s".
type ChannelConfig struct {
	// HandshakeTimeout bounds the WebSocket opening handshake.
	HandshakeTimeout string `json:"handshakeTimeout,omitempty"`

	// WriteTimeout bounds writing the request.
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// FirstFrameTimeout is how long to wait for the first status frame.
	// "0s" waits indefinitely.
	FirstFrameTimeout string `json:"firstFrameTimeout,omitempty"`

	// MaxMessageSize is the largest inbound frame accepted, in bytes.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty"`

	// ClosePolicy is "ambiguous" (default) or "success".
	ClosePolicy string `json:"closePolicy,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Address is the listen address of the /metrics endpoint. Empty
	// disables it.
	Address string `json:"address,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`
}

// TranscriptsConfig contains operation transcript storage settings. With
// neither Dir nor S3.Bucket set, transcripts are not kept.
type TranscriptsConfig struct {
	// Dir is the directory transcripts are written to.
	Dir string `json:"dir,omitempty"`

	// S3 archives transcripts to a bucket.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config names the transcript bucket.
type S3Config struct {
	Bucket   string `json:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	def := channel.DefaultConfig()
	return &Config{
		Server:     DefaultServer,
		ResizePath: DefaultResizePath,
		RegionPath: DefaultRegionPath,
		Types:      append([]string(nil), DefaultTypes...),
		Channel: ChannelConfig{
			HandshakeTimeout:  def.HandshakeTimeout.String(),
			WriteTimeout:      def.WriteTimeout.String(),
			FirstFrameTimeout: def.FirstFrameTimeout.String(),
			MaxMessageSize:    def.MaxMessageSize,
			ClosePolicy:       def.ClosePolicy.String(),
		},
		Metrics: MetricsConfig{
			Namespace: DefaultMetricsNamespace,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for resize.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E121").
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Create " + ConfigFileName + " or pass --server and --instance")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, decodeError(path, data, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// decodeError points a JSON error at the offending line when the decoder
// reports an offset.
func decodeError(path string, data []byte, err error) *errors.ResizeError {
	e := errors.New("E120").Wrap(err)

	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case stderrors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return e
	}

	line, col := lineColumn(data, offset)
	return e.WithLocation(path, line, col)
}

// lineColumn converts a byte offset into a 1-based line and column.
func lineColumn(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	if offset < 1 {
		return 1, 1
	}
	// The decoder reports the offset just past the offending byte.
	before := data[:offset-1]
	line := bytes.Count(before, []byte("\n")) + 1
	col := len(before) - bytes.LastIndexByte(before, '\n')
	return line, col
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for fields the file cleared.
func (c *Config) applyDefaults() {
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if c.ResizePath == "" {
		c.ResizePath = DefaultResizePath
	}
	if c.RegionPath == "" {
		c.RegionPath = DefaultRegionPath
	}
	if len(c.Types) == 0 {
		c.Types = append([]string(nil), DefaultTypes...)
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// Validate checks if the configuration is valid. Instance is not checked
// here because commands that need it can take it from a flag.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		e := errors.New("E124").WithDetail(fmt.Sprintf("server is %q", c.Server))
		if err != nil {
			e.Wrap(err)
		}
		return e
	}

	durations := []struct {
		field string
		value string
	}{
		{"channel.handshakeTimeout", c.Channel.HandshakeTimeout},
		{"channel.writeTimeout", c.Channel.WriteTimeout},
		{"channel.firstFrameTimeout", c.Channel.FirstFrameTimeout},
	}
	for _, d := range durations {
		if _, err := parseDuration(d.value); err != nil {
			return errors.New("E122").
				WithDetail(fmt.Sprintf("%s is %q", d.field, d.value)).
				Wrap(err)
		}
	}

	if c.Channel.MaxMessageSize < 0 {
		return errors.New("E121").WithDetail("channel.maxMessageSize must not be negative")
	}

	if _, err := channel.ParseClosePolicy(c.Channel.ClosePolicy); err != nil {
		return errors.New("E123").
			WithDetail(fmt.Sprintf("channel.closePolicy is %q", c.Channel.ClosePolicy))
	}

	if strings.TrimSpace(c.ResizePath) == "" {
		return errors.New("E121").WithDetail("resizePath is empty")
	}

	if c.Transcripts.S3.Bucket == "" && (c.Transcripts.S3.Prefix != "" || c.Transcripts.S3.Endpoint != "") {
		return errors.New("E125").WithDetail("transcripts.s3 sets a prefix or endpoint but no bucket")
	}

	return nil
}

// parseDuration accepts an empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, stderrors.New("duration must not be negative")
	}
	return d, nil
}

// ChannelConfig builds the channel manager configuration. An unset
// duration keeps the channel default, while an explicit "0s" first-frame
// timeout disables the timer.
func (c *Config) ChannelConfig() (*channel.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cfg := channel.DefaultConfig()
	if c.Channel.HandshakeTimeout != "" {
		cfg.HandshakeTimeout, _ = parseDuration(c.Channel.HandshakeTimeout)
	}
	if c.Channel.WriteTimeout != "" {
		cfg.WriteTimeout, _ = parseDuration(c.Channel.WriteTimeout)
	}
	if c.Channel.FirstFrameTimeout != "" {
		cfg.FirstFrameTimeout, _ = parseDuration(c.Channel.FirstFrameTimeout)
	}
	if c.Channel.MaxMessageSize > 0 {
		cfg.MaxMessageSize = c.Channel.MaxMessageSize
	}
	cfg.ClosePolicy, _ = channel.ParseClosePolicy(c.Channel.ClosePolicy)
	return cfg, nil
}

// HasType reports whether t is one of the configured instance types.
func (c *Config) HasType(t string) bool {
	for _, typ := range c.Types {
		if typ == t {
			return true
		}
	}
	return false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the directory holding
// resize.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E121").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads resize.json from the working directory or its
// nearest parent that has one. Without any file it returns the defaults.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return New(), nil
	}

	return Load(root)
}
