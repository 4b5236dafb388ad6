package main

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/urfave/cli/v3"
)

type buildInfo struct {
	Version   string
	GoVersion string
	Commit    string
	BuildTime string
	Dirty     bool
}

func readBuildInfo() buildInfo {
	bi := buildInfo{Version: "devel"}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi
	}
	if info.Main.Version != "" {
		bi.Version = info.Main.Version
	}
	bi.GoVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			bi.Commit = setting.Value
		case "vcs.time":
			bi.BuildTime = setting.Value
		case "vcs.modified":
			bi.Dirty = setting.Value == "true"
		}
	}
	return bi
}

func (bi buildInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "untar %s", bi.Version)
	if bi.GoVersion != "" {
		fmt.Fprintf(&b, " built with %s", bi.GoVersion)
	}
	if bi.Commit != "" {
		fmt.Fprintf(&b, "\ncommit %s", bi.Commit)
		if bi.Dirty {
			b.WriteString(" with local changes")
		}
	}
	if bi.BuildTime != "" {
		fmt.Fprintf(&b, "\ncommitted at %s", bi.BuildTime)
	}
	return b.String()
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print the untar release and the commit it was built from",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "short",
			Usage: "Print the release only",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		bi := readBuildInfo()
		if command.Bool("short") {
			_, err := fmt.Fprintln(command.Root().Writer, bi.Version)
			return err
		}
		_, err := fmt.Fprintln(command.Root().Writer, bi.String())
		return err
	},
}
