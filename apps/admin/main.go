package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/hadirapp/hadir/core"
	"github.com/hadirapp/hadir/storage/database"
	sqlxrepos "github.com/hadirapp/hadir/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.MustNewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	sdb, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = sdb.Close() }()
	errAndDie(sdb.Ping())
	db := sqlx.NewDb(sdb, conf.Database.Engine)

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		conf:    conf,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
