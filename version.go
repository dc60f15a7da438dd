package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"

	"github.com/cryptopuck/cryptopuck/internal/tlog"
	"github.com/cryptopuck/cryptopuck/internal/treecrypt"
)

const (
	gitVersionNotSet = "[GitVersion not set - please compile using ./build.bash]"
	buildDateNotSet  = "0000-00-00"
)

var (
	// GitVersion is the cryptopuck version according to git, set by build.bash
	GitVersion = gitVersionNotSet
	// BuildDate is a date string like "2017-09-06", set by build.bash
	BuildDate = buildDateNotSet
)

func init() {
	versionFromBuildInfo()
}

// raceDetector is set to true by race.go if we are compiled with "go build -race"
var raceDetector bool

// printVersion prints a version string like this:
// cryptopuck v0.3-4-gcf99cfd; format 1; 2019-05-12 go1.24 linux/arm
func printVersion() {
	built := fmt.Sprintf("%s %s", BuildDate, runtime.Version())
	if raceDetector {
		built += " -race"
	}
	fmt.Printf("%s %s; format %d; %s %s/%s\n",
		tlog.ProgramName, GitVersion, treecrypt.FormatVersion, built,
		runtime.GOOS, runtime.GOARCH)
}

// versionFromBuildInfo tries to get some information out of the information baked in
// by the Go compiler. Does nothing when build.bash was used to build.
func versionFromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		tlog.Debug.Println("versionFromBuildInfo: ReadBuildInfo() failed")
		return
	}
	var vcsRevision, vcsTime string
	var vcsModified bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			vcsRevision = s.Value
		case "vcs.time":
			vcsTime = s.Value
		case "vcs.modified":
			vcsModified, _ = strconv.ParseBool(s.Value)
		}
	}
	if GitVersion == gitVersionNotSet {
		GitVersion = info.Main.Version
		if GitVersion == "(devel)" && vcsRevision != "" {
			GitVersion = fmt.Sprintf("vcs.revision=%s", vcsRevision)
		}
		if vcsModified {
			GitVersion += "-dirty"
		}
	}
	if BuildDate == buildDateNotSet && vcsTime != "" {
		BuildDate = fmt.Sprintf("vcs.time=%s", vcsTime)
	}
}
