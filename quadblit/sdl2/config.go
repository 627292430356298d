package main

import (
	"flag"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/quad/quad"
	"gopkg.in/yaml.v3"
)

type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Config is the demo's settings, read from an optional YAML file and then
// overridden by command-line flags.
type Config struct {
	Window WindowConfig `yaml:"window"`

	// Image is a PNG to blit. Empty draws a generated checkerboard.
	Image     string `yaml:"image"`
	ShaderDir string `yaml:"shader_dir"`

	// Filter is "nearest" or "linear".
	Filter string `yaml:"filter"`
	Blend  string `yaml:"blend"`
	// Alpha is the constant alpha used by the constant-alpha blend.
	Alpha float32 `yaml:"alpha"`

	// PipelineCache is a file the pipeline cache is loaded from and saved
	// to. Empty disables the cache.
	PipelineCache string `yaml:"pipeline_cache"`
	Validation    bool   `yaml:"validation"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Title:  "quadblit",
			Width:  800,
			Height: 600,
		},
		ShaderDir: "shaders",
		Filter:    "linear",
		Blend:     quad.SourceAlpha.String(),
		Alpha:     1,
	}
}

func (c Config) Nearest() bool {
	return c.Filter == "nearest"
}

func (c Config) BlendVariant() quad.BlendVariant {
	v, _ := quad.ParseBlendVariant(c.Blend)
	return v
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Filter != "nearest" && c.Filter != "linear" {
		return errors.Errorf("filter must be nearest or linear, got %q", c.Filter)
	}
	if _, err := quad.ParseBlendVariant(c.Blend); err != nil {
		return err
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return errors.Errorf("alpha must be within [0, 1], got %g", c.Alpha)
	}
	if c.ShaderDir == "" {
		return errors.New("shader_dir must be set")
	}
	return nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// ParseArgs builds the configuration from args (without the program name).
// Values from -config are applied first, then any flag given explicitly.
func ParseArgs(args []string, output io.Writer) (Config, error) {
	config := DefaultConfig()

	flags := flag.NewFlagSet("quadblit", flag.ContinueOnError)
	flags.SetOutput(output)
	configPath := flags.String("config", "", "YAML configuration file")
	image := flags.String("image", config.Image, "PNG image to draw")
	shaderDir := flags.String("shaders", config.ShaderDir, "directory holding quad.vert.spv and quad.frag.spv")
	filter := flags.String("filter", config.Filter, "texture filter: nearest or linear")
	blend := flags.String("blend", config.Blend, "blend variant: source-alpha or constant-alpha")
	alpha := flags.Float64("alpha", float64(config.Alpha), "constant alpha for constant-alpha blending")
	cache := flags.String("pipeline-cache", config.PipelineCache, "pipeline cache file")
	validation := flags.Bool("validation", config.Validation, "enable the Khronos validation layer")

	err := flags.Parse(args)
	if err != nil {
		return Config{}, err
	}

	if *configPath != "" {
		err = loadConfigFile(*configPath, &config)
		if err != nil {
			return Config{}, err
		}
	}

	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "image":
			config.Image = *image
		case "shaders":
			config.ShaderDir = *shaderDir
		case "filter":
			config.Filter = *filter
		case "blend":
			config.Blend = *blend
		case "alpha":
			config.Alpha = float32(*alpha)
		case "pipeline-cache":
			config.PipelineCache = *cache
		case "validation":
			config.Validation = *validation
		}
	})

	err = config.Validate()
	if err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	return config, nil
}
