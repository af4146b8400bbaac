package app

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	daemon "github.com/sevlyar/go-daemon"
)

var Version = "1.0.0"

var ConfigPath string
var Info = map[string]any{
	"version": Version,
}

func Init() {
	var confs flagConfig
	var daemonize bool
	var version bool

	flag.Var(&confs, "config", "gencam config (path to file or raw text), support multiple")
	if runtime.GOOS != "windows" {
		flag.BoolVar(&daemonize, "daemon", false, "Run program in background")
	}
	flag.BoolVar(&version, "version", false, "Print the version of the application and exit")
	flag.Parse()

	if version {
		vcsRevision := ""
		vcsTime := time.Now().Local()
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					if len(setting.Value) > 7 {
						vcsRevision = setting.Value[:7]
					} else {
						vcsRevision = setting.Value
					}
					vcsRevision = "(" + vcsRevision + ")"
				}
				if setting.Key == "vcs.time" {
					vcsTime, _ = time.Parse(time.RFC3339, setting.Value)
					vcsTime = vcsTime.Local()
				}
			}
		}
		fmt.Printf("gencam version %s%s: %s %s/%s\n", Version, vcsRevision, vcsTime.Local().String(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	if daemonize {
		cntxt := &daemon.Context{
			PidFileName: "gencam.pid",
			PidFilePerm: 0644,
			LogFileName: "gencam.log",
			LogFilePerm: 0644,
		}
		child, err := cntxt.Reborn()
		if err != nil {
			log.Fatal().Err(err).Send()
		}
		if child != nil {
			// parent process, the child carries on
			fmt.Println("Running in daemon mode with PID:", child.Pid)
			os.Exit(0)
		}
		daemonContext = cntxt
	}

	initConfig(confs)
	initLogger()

	log.Logger = Logger

	platform := fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	log.Info().Str("version", Version).Str("platform", platform).Msg("gencam")
	log.Debug().Str("version", runtime.Version()).Msg("build")

	if ConfigPath != "" {
		log.Info().Str("path", ConfigPath).Msg("config")
	}
}

// Shutdown removes the daemon pid file when running daemonized.
func Shutdown() {
	if daemonContext != nil {
		_ = daemonContext.Release()
	}
}

var daemonContext *daemon.Context
