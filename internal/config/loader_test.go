package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/pdmimport/internal/config"
	"github.com/smartystreets/goconvey/convey"
	"github.com/spf13/pflag"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.DumpPath, convey.ShouldEqual, "dump.jsonl")
				convey.So(cfg.Commit, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PDMIMPORT_DUMP_PATH", "/data/pdm.jsonl")
			_ = os.Setenv("PDMIMPORT_COMMIT", "true")
			_ = os.Setenv("PDMIMPORT_STORE_TIMEOUT_MS", "5000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DumpPath, convey.ShouldEqual, "/data/pdm.jsonl")
				convey.So(cfg.Commit, convey.ShouldBeTrue)
				convey.So(cfg.StoreTimeoutMS, convey.ShouldEqual, 5000)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
dump_path: "/data/from-file.jsonl"
result_path: "/data/audit.json"
store_driver: memory
bootstrap: true
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PDMIMPORT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DumpPath, convey.ShouldEqual, "/data/from-file.jsonl")
				convey.So(cfg.ResultPath, convey.ShouldEqual, "/data/audit.json")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.Bootstrap, convey.ShouldBeTrue)
				convey.So(cfg.Database, convey.ShouldEqual, "cgm") // From defaults
			})
		})

		convey.Convey("When file, env and flags all set the same key", func() {
			tmpFile := createTempConfigFile("dump_path: from-file.jsonl\nresult_path: file-result.json\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PDMIMPORT_DUMP_PATH", "from-env.jsonl")
			defer clearConfigEnvVars()

			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			config.BindFlags(fs)
			convey.So(fs.Parse([]string{"--config", tmpFile, "--dump", "from-flag.jsonl", "--commit"}), convey.ShouldBeNil)

			cfg, err := config.Load(ctx, fs)

			convey.Convey("Then flags beat env which beats the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DumpPath, convey.ShouldEqual, "from-flag.jsonl")
				convey.So(cfg.ResultPath, convey.ShouldEqual, "file-result.json")
				convey.So(cfg.Commit, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When flags are registered but not set", func() {
			_ = os.Setenv("PDMIMPORT_RESULT_PATH", "env-result.json")
			defer clearConfigEnvVars()

			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			config.BindFlags(fs)
			convey.So(fs.Parse(nil), convey.ShouldBeNil)

			cfg, err := config.Load(ctx, fs)

			convey.Convey("Then flag defaults do not mask env values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ResultPath, convey.ShouldEqual, "env-result.json")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("PDMIMPORT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PDMIMPORT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown store driver", func() {
			_ = os.Setenv("PDMIMPORT_STORE_DRIVER", "sqlite")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "unknown store_driver")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PDMIMPORT_STORE_TIMEOUT_MS", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"PDMIMPORT_CONFIG",
		"PDMIMPORT_DUMP_PATH",
		"PDMIMPORT_RESULT_PATH",
		"PDMIMPORT_COMMIT",
		"PDMIMPORT_STORE_DRIVER",
		"PDMIMPORT_STORE_TIMEOUT_MS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "pdmimport-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
