// SPDX-License-Identifier: MPL-2.0

// Package config loads the podstrap settings: component pins, poll and retry
// bounds, and layout fragments. Settings are constructed once at process
// start, read-only thereafter, and passed into each component explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"github.com/podstrap/podstrap/internal/issue"
	"github.com/podstrap/podstrap/internal/readiness"
)

const (
	// AppName is the application name, also the config directory name.
	AppName = "podstrap"

	configFileName = "config"
	configFileType = "toml"
	envPrefix      = "PODSTRAP"
)

// ComponentRef pins one stack component to a source repository and tag.
type ComponentRef struct {
	Repo string
	Ref  string
}

// Poll bounds a readiness poll.
type Poll struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Settings is the process-wide configuration value.
type Settings struct {
	// DefaultUser is the target account when --user is not given.
	DefaultUser string
	// DefaultRuntime is the OCI runtime written into the engine config.
	DefaultRuntime string
	// DefaultSubnet is the container network range written into the engine
	// config when --subnet is not given.
	DefaultSubnet string
	// Jobs is the parallel build job count when --jobs is not given.
	Jobs int

	// BuildDir and BinDir are home-relative layout fragments.
	BuildDir string
	BinDir   string

	// Registries are the unqualified-search registries for the registry
	// policy document.
	Registries []string

	// Crun, Conmon, Slirp4netns, and Podman pin the component sources.
	Crun        ComponentRef
	Conmon      ComponentRef
	Slirp4netns ComponentRef
	Podman      ComponentRef

	// ServicePoll bounds the user-service readiness wait; EnginePoll bounds
	// the engine health wait.
	ServicePoll Poll
	EnginePoll  Poll

	// Fetch bounds retries of network fetch operations.
	Fetch readiness.Policy
}

// ConfigDir returns the operator's podstrap configuration directory
// ($XDG_CONFIG_HOME/podstrap, defaulting under the home directory).
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// Load builds Settings from defaults, an optional TOML config file, and
// PODSTRAP_* environment variables. An absent config file is not an error;
// an unreadable or malformed one is.
func Load(explicitPath string) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(explicitPath == "" && os.IsNotExist(err)) {
			return Settings{}, issue.NewContext(issue.ErrInvalidArgument).
				Operation("load configuration").
				Resource(v.ConfigFileUsed()).
				Suggestion("Fix the TOML syntax or remove the file to use built-in defaults").
				Wrap(err).
				Err()
		}
	}

	s := Settings{
		DefaultUser:    v.GetString("default_user"),
		DefaultRuntime: v.GetString("default_runtime"),
		DefaultSubnet:  v.GetString("default_subnet"),
		Jobs:           v.GetInt("jobs"),
		BuildDir:       v.GetString("layout.build_dir"),
		BinDir:         v.GetString("layout.bin_dir"),
		Registries:     v.GetStringSlice("registries"),
		Crun:           componentRef(v, "crun"),
		Conmon:         componentRef(v, "conmon"),
		Slirp4netns:    componentRef(v, "slirp4netns"),
		Podman:         componentRef(v, "podman"),
		ServicePoll: Poll{
			Interval: v.GetDuration("poll.service.interval"),
			Timeout:  v.GetDuration("poll.service.timeout"),
		},
		EnginePoll: Poll{
			Interval: v.GetDuration("poll.engine.interval"),
			Timeout:  v.GetDuration("poll.engine.timeout"),
		},
		Fetch: readiness.Policy{
			MaxAttempts: v.GetInt("fetch.max_attempts"),
			InitialWait: v.GetDuration("fetch.initial_wait"),
			Multiplier:  v.GetFloat64("fetch.multiplier"),
		},
	}
	return s, nil
}

func componentRef(v *viper.Viper, name string) ComponentRef {
	return ComponentRef{
		Repo: v.GetString("components." + name + ".repo"),
		Ref:  v.GetString("components." + name + ".ref"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_user", "podman")
	v.SetDefault("default_runtime", "crun")
	v.SetDefault("default_subnet", "10.88.64.0/24")
	v.SetDefault("jobs", runtime.NumCPU())

	v.SetDefault("layout.build_dir", ".local/src/podstrap")
	v.SetDefault("layout.bin_dir", ".local/bin")

	v.SetDefault("registries", []string{"docker.io", "quay.io"})

	v.SetDefault("components.crun.repo", "https://github.com/containers/crun.git")
	v.SetDefault("components.crun.ref", "1.16.1")
	v.SetDefault("components.conmon.repo", "https://github.com/containers/conmon.git")
	v.SetDefault("components.conmon.ref", "v2.1.12")
	v.SetDefault("components.slirp4netns.repo", "https://github.com/rootless-containers/slirp4netns.git")
	v.SetDefault("components.slirp4netns.ref", "v1.3.1")
	v.SetDefault("components.podman.repo", "https://github.com/containers/podman.git")
	v.SetDefault("components.podman.ref", "v5.2.2")

	v.SetDefault("poll.service.interval", 2*time.Second)
	v.SetDefault("poll.service.timeout", time.Minute)
	v.SetDefault("poll.engine.interval", 2*time.Second)
	v.SetDefault("poll.engine.timeout", 2*time.Minute)

	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.initial_wait", 2*time.Second)
	v.SetDefault("fetch.multiplier", 2.0)
}
