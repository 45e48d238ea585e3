package main

import (
	"fmt"

	"github.com/trezcool/examiner/storage/database"
	boltdb "github.com/trezcool/examiner/storage/database/bolt"
)

func (cli *commandLine) migrate(command string) error {
	latest := database.AppSchema(nil).Version()
	switch command {
	case "up":
		db, err := cli.database()
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "database at version %d\n", db.Version())
	case "version":
		version, err := cli.schemaVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "version %d (latest %d)\n", version, latest)
	default:
		return fmt.Errorf("%q: no such command", command)
	}
	return nil
}

// schemaVersion reads the version without migrating the database.
func (cli *commandLine) schemaVersion() (int, error) {
	if cli.db != nil {
		return cli.db.Version(), nil
	}
	return boltdb.FileVersion(cli.conf.Database.Path, cli.conf.Database.OpenTimeout)
}
