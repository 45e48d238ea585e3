package main

import (
	"log"
	"os"

	"github.com/trezcool/examiner/core"
	logsvc "github.com/trezcool/examiner/services/logger"
)

func main() {
	conf := core.NewConfig()
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)

	// start CLI
	cli := &commandLine{
		conf:   conf,
		logger: logger,
		out:    os.Stdout,
	}
	err := cli.run(os.Args)
	if cErr := cli.close(); cErr != nil && err == nil {
		err = cErr
	}
	logger.Close()

	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
