package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

// execute runs the root command with args and returns stdout.
func execute(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		names := map[string]bool{}
		for _, c := range rootCmd.Commands() {
			names[c.Name()] = true
		}

		convey.Convey("Then every operator command is registered", func() {
			for _, name := range []string{"migrate", "seed", "themes", "simulate"} {
				convey.So(names[name], convey.ShouldBeTrue)
			}
		})
	})
}

func TestThemesCommands(t *testing.T) {
	convey.Convey("Given the built-in dictionary", t, func() {
		themesFile = ""

		convey.Convey("When a punctuality remark is classified", func() {
			out, err := execute("themes", "classify", "--strategy", "first", "Altijd", "op", "tijd")

			convey.Convey("Then it lands on reliability", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "THEME")
				convey.So(out, convey.ShouldContainSubstring, "assigned: reliability")
			})
		})

		convey.Convey("When nothing matches", func() {
			out, err := execute("themes", "classify", "--strategy", "first", "xyz")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "assigned: unrecognized")
		})

		convey.Convey("When the strategy is unknown", func() {
			_, err := execute("themes", "classify", "--strategy", "random", "xyz")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the themes are listed", func() {
			out, err := execute("themes", "list")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "communication")
			convey.So(out, convey.ShouldContainSubstring, "creativity")
		})
	})

	convey.Convey("Given a custom dictionary file", t, func() {
		path := filepath.Join(t.TempDir(), "themes.yaml")
		convey.So(os.WriteFile(path, []byte("themes:\n  - id: focus\n    name: Focus\n    keywords: [scherp]\n"), 0o600), convey.ShouldBeNil)
		defer func() { themesFile = "" }()

		out, err := execute("themes", "classify", "--file", path, "--strategy", "first", "altijd", "scherp")
		convey.So(err, convey.ShouldBeNil)
		convey.So(out, convey.ShouldContainSubstring, "assigned: focus")
	})
}

func TestStoreCommandsNeedPostgres(t *testing.T) {
	convey.Convey("Given the default memory configuration", t, func() {
		convey.So(os.Unsetenv("PULSE_DATABASE_URL"), convey.ShouldBeNil)

		convey.Convey("Then seeding is refused", func() {
			_, err := execute("seed", "--code", "EAGLE", "--credential", "letmein")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "store=postgres")
		})

		convey.Convey("Then migrations need a database url", func() {
			_, err := execute("migrate", "status")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "database_url")
		})
	})
}
