package wire

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Zereker/wire/component"
	"github.com/Zereker/wire/nbt"
	"github.com/Zereker/wire/pipeline"
	"github.com/Zereker/wire/transport"
)

// ErrUnknownConfigFormat is returned by LoadConfig for files that are neither
// TOML nor YAML.
var ErrUnknownConfigFormat = errors.New("unknown config format")

// Config is the file form of the connection options.
type Config struct {
	// CompressionThreshold is the smallest body that is compressed. Negative
	// disables compression.
	CompressionThreshold int
	// MaxFrameSize caps the frame reader's buffer.
	MaxFrameSize int
	// MaxDataLength caps the decompressed length a frame may declare.
	MaxDataLength int
	SendBuffer    int
	Heartbeat     time.Duration
	// NBTLimit is the accounting ceiling for NBT fields. Zero means
	// nbt.DefaultLimit.
	NBTLimit uint64
}

// DefaultConfig returns the values NewConn uses when no option is given.
func DefaultConfig() Config {
	return Config{
		CompressionThreshold: -1,
		MaxFrameSize:         transport.DefaultMaxSize,
		MaxDataLength:        pipeline.DefaultMaxDataLength,
		SendBuffer:           defaultBufferSize,
		Heartbeat:            defaultHeartbeat,
		NBTLimit:             nbt.DefaultLimit,
	}
}

// fileConfig maps config file keys. Absent keys stay nil.
type fileConfig struct {
	CompressionThreshold *int    `toml:"compression_threshold" yaml:"compression_threshold"`
	MaxFrameSize         *int    `toml:"max_frame_size" yaml:"max_frame_size"`
	MaxDataLength        *int    `toml:"max_data_length" yaml:"max_data_length"`
	SendBuffer           *int    `toml:"send_buffer" yaml:"send_buffer"`
	Heartbeat            *string `toml:"heartbeat" yaml:"heartbeat"`
	NBTLimit             *uint64 `toml:"nbt_limit" yaml:"nbt_limit"`
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) file over
// DefaultConfig. Keys missing from the file keep their defaults; unknown keys
// are an error.
func LoadConfig(path string) (Config, error) {
	var (
		raw fileConfig
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = decodeTOML(path, &raw)
	case ".yaml", ".yml":
		err = decodeYAML(path, &raw)
	default:
		err = errors.Wrapf(ErrUnknownConfigFormat, "%s", path)
	}
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if raw.CompressionThreshold != nil {
		cfg.CompressionThreshold = *raw.CompressionThreshold
	}
	if raw.MaxFrameSize != nil {
		cfg.MaxFrameSize = *raw.MaxFrameSize
	}
	if raw.MaxDataLength != nil {
		cfg.MaxDataLength = *raw.MaxDataLength
	}
	if raw.SendBuffer != nil {
		cfg.SendBuffer = *raw.SendBuffer
	}
	if raw.Heartbeat != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.Heartbeat))
		if err != nil {
			return Config{}, errors.Wrapf(err, "load config %s: heartbeat", path)
		}
		cfg.Heartbeat = d
	}
	if raw.NBTLimit != nil {
		cfg.NBTLimit = *raw.NBTLimit
	}
	return cfg, nil
}

func decodeTOML(path string, raw *fileConfig) error {
	meta, err := toml.DecodeFile(path, raw)
	if err != nil {
		return errors.Wrapf(err, "load config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

func decodeYAML(path string, raw *fileConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "load config %s", path)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	// io.EOF means an empty document
	if err := dec.Decode(raw); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrapf(err, "load config %s", path)
	}
	return nil
}

// Options returns the connection options described by c. The codec and
// message handler still have to be supplied by the caller.
func (c Config) Options() []Option {
	return []Option{
		CompressionThresholdOption(c.CompressionThreshold),
		MessageMaxSize(c.MaxFrameSize),
		MaxDataLengthOption(c.MaxDataLength),
		BufferSizeOption(c.SendBuffer),
		HeartbeatOption(c.Heartbeat),
	}
}

// NBT returns an NBT field codec using the configured accounting ceiling.
func (c Config) NBT() component.NBT {
	return component.NBT{Limit: c.NBTLimit}
}
