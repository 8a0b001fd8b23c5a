package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/pdmimport/internal/adapters/audit"
	"github.com/smartystreets/goconvey/convey"
)

func execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given a dump and the in-memory store", t, func() {
		dir := t.TempDir()
		dump := filepath.Join(dir, "dump.jsonl")
		result := filepath.Join(dir, "result.json")
		err := os.WriteFile(dump, []byte(
			`{"recordType":"BOLUS","record":{"timestamp":"2024-01-01T00:00:00Z","units":2.5,"extendedDurationMinutes":0}}`+"\n"+
				`{"recordType":"DOWNLOAD","record":{"timestamp":"2024-01-01T01:00:00Z"}}`+"\n",
		), 0o600)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When running a bootstrap commit", func() {
			stdout, stderr, err := execute(
				"--store-driver", "memory",
				"--dump", dump,
				"--result", result,
				"--log-format", "json",
				"--commit", "--bootstrap",
			)

			convey.Convey("Then it succeeds and writes the audit log", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stdout, convey.ShouldContainSubstring, "accepted=2")
				convey.So(stdout, convey.ShouldContainSubstring, "committed")
				convey.So(stderr, convey.ShouldContainSubstring, `"msg":"import finished"`)

				lines, err := audit.ReadAll(result)
				convey.So(err, convey.ShouldBeNil)
				convey.So(lines, convey.ShouldHaveLength, 2)
			})
		})

		convey.Convey("When no prior download exists and bootstrap is off", func() {
			_, stderr, err := execute("--store-driver", "memory", "--dump", dump, "--result", result)

			convey.Convey("Then the run fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(stderr, convey.ShouldContainSubstring, "import aborted")
			})
		})

		convey.Convey("When positional arguments are given", func() {
			_, _, err := execute("extra")

			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the store driver is unknown", func() {
			_, stderr, err := execute("--store-driver", "cassandra")

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(stderr, convey.ShouldContainSubstring, "failed to load config")
		})
	})
}
