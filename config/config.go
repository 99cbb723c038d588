package config

import (
	"path/filepath"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/inputmon/helpers"
	"github.com/temoto/inputmon/log2"
	tele_config "github.com/temoto/inputmon/tele/config"
)

const (
	DriverX11    = "x11"
	DriverEvdev  = "evdev"
	DriverScript = "script"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Source struct {
		Driver  string `hcl:"driver"`  // x11|evdev|script
		Display string `hcl:"display"` // x11, empty means $DISPLAY
		Device  string `hcl:"device"`  // evdev
		Script  string `hcl:"script"`  // script, replay file path
	} `hcl:"source"`

	Log struct {
		Level string `hcl:"level"` // error|info|debug|all
		Debug bool   `hcl:"debug"`
	} `hcl:"log"`

	Metrics struct {
		Listen string `hcl:"listen"`
	} `hcl:"metrics"`

	Tele tele_config.Config `hcl:"tele"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// LogLevel resolves log section, debug flag wins over level.
func (c *Config) LogLevel() log2.Level {
	if c.Log.Debug {
		return log2.LDebug
	}
	l, err := log2.ParseLevel(c.Log.Level)
	if err != nil {
		return log2.LInfo
	}
	return l
}

func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	switch c.Source.Driver {
	case DriverX11:
	case DriverEvdev:
		if c.Source.Device == "" {
			errs = append(errs, errors.NotValidf("config source.driver=evdev source.device=(empty)"))
		}
	case DriverScript:
		if c.Source.Script == "" {
			errs = append(errs, errors.NotValidf("config source.driver=script source.script=(empty)"))
		}
	default:
		errs = append(errs, errors.NotValidf("config source.driver=%s valid: x11, evdev, script", c.Source.Driver))
	}
	if c.Log.Level != "" {
		if _, err := log2.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, errors.Annotate(err, "config log.level"))
		}
	}
	if c.Tele.Enabled {
		switch c.Tele.Transport {
		case tele_config.TransportMqtt:
			if c.Tele.Broker == "" {
				errs = append(errs, errors.NotValidf("config tele.transport=mqtt tele.broker=(empty)"))
			}
		case tele_config.TransportNats:
		default:
			errs = append(errs, errors.NotValidf("config tele.transport=%s valid: mqtt, nats", c.Tele.Transport))
		}
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) setDefaults() {
	if c.Source.Driver == "" {
		c.Source.Driver = DriverX11
	}
	if c.Tele.Transport == "" {
		c.Tele.Transport = tele_config.TransportMqtt
	}
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig without names returns defaults.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if osfs, ok := fs.(*OsFullReader); ok && len(names) != 0 {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	if err := helpers.FoldErrors(errs); err != nil {
		return nil, err
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadConfigFile reads path and its includes from OS filesystem.
// Empty path returns defaults.
func ReadConfigFile(log *log2.Log, path string) (*Config, error) {
	fs, err := NewOsFullReader(".")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return ReadConfig(log, fs)
	}
	return ReadConfig(log, fs, path)
}

func MustReadConfigFile(log *log2.Log, path string) *Config {
	c, err := ReadConfigFile(log, path)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
