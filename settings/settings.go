// Package settings loads the boot configuration from a TOML file.
package settings

import (
	"os"

	"github.com/naoina/toml"
	"github.com/pkg/errors"

	"github.com/qbaula/project2/kernel"
)

const (
	ConfigSuffix = ".toml"

	DefaultCapacity = 4 << 20
)

type Kernel struct {
	LogLevel     string `toml:"log_level"`
	ConsoleChunk int    `toml:"console_chunk"`
	MaxOpenFiles int    `toml:"max_open_files"`
	StackPages   int    `toml:"stack_pages"`
	ExitMessages bool   `toml:"exit_messages"`
}

type Disk struct {
	Image    string `toml:"image"`
	Capacity int64  `toml:"capacity"`
	Save     bool   `toml:"save"`
}

type AppSettings struct {
	Kernel Kernel `toml:"kernel"`
	Disk   Disk   `toml:"disk"`
}

// Validate fills unset values with their defaults and reports values that
// cannot be used.
func (s *AppSettings) Validate() []error {
	def := kernel.DefaultConfig()

	if s.Kernel.LogLevel == "" {
		s.Kernel.LogLevel = "info"
	}

	if s.Kernel.ConsoleChunk == 0 {
		s.Kernel.ConsoleChunk = def.ConsoleChunk
	}

	if s.Kernel.MaxOpenFiles == 0 {
		s.Kernel.MaxOpenFiles = def.MaxOpenFiles
	}

	if s.Kernel.StackPages == 0 {
		s.Kernel.StackPages = def.StackPages
	}

	if s.Disk.Capacity == 0 {
		s.Disk.Capacity = DefaultCapacity
	}

	var errs []error

	if s.Kernel.ConsoleChunk < 0 {
		errs = append(errs, errors.Errorf("console_chunk must be positive, got %d", s.Kernel.ConsoleChunk))
	}

	if s.Kernel.MaxOpenFiles < 0 {
		errs = append(errs, errors.Errorf("max_open_files must be positive, got %d", s.Kernel.MaxOpenFiles))
	}

	if s.Kernel.StackPages < 0 {
		errs = append(errs, errors.Errorf("stack_pages must be positive, got %d", s.Kernel.StackPages))
	}

	if s.Disk.Capacity < 0 {
		errs = append(errs, errors.Errorf("disk capacity must be positive, got %d", s.Disk.Capacity))
	}

	if s.Disk.Save && s.Disk.Image == "" {
		errs = append(errs, errors.New("disk save requested with no image"))
	}

	return errs
}

// KernelConfig returns the kernel configuration. Validate must have run.
func (s *AppSettings) KernelConfig() kernel.Config {
	return kernel.Config{
		ConsoleChunk: s.Kernel.ConsoleChunk,
		MaxOpenFiles: s.Kernel.MaxOpenFiles,
		StackPages:   s.Kernel.StackPages,
		ExitMessages: s.Kernel.ExitMessages,
	}
}

// Parse decodes TOML settings. Keys missing from data keep their zero
// value, except exit_messages which defaults to on.
func Parse(data []byte) (*AppSettings, error) {
	s := blank()

	if err := toml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "parsing settings")
	}

	return s, nil
}

func blank() *AppSettings {
	return &AppSettings{
		Kernel: Kernel{ExitMessages: kernel.DefaultConfig().ExitMessages},
	}
}

// LoadSettings reads and validates the settings file filename.
func LoadSettings(filename string) (*AppSettings, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filename)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", filename)
	}

	if errs := s.Validate(); len(errs) > 0 {
		return nil, errors.Wrapf(errs[0], "in %s", filename)
	}

	return s, nil
}

// Default returns validated settings with every value at its default.
func Default() *AppSettings {
	s := blank()
	s.Validate()
	return s
}
