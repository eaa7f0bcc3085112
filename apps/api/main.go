package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/hadirapp/hadir/apps/api/echo"
	"github.com/hadirapp/hadir/core"
	"github.com/hadirapp/hadir/core/attendee"
	"github.com/hadirapp/hadir/core/user"
	emailsvc "github.com/hadirapp/hadir/services/email"
	logsvc "github.com/hadirapp/hadir/services/logger"
	"github.com/hadirapp/hadir/storage/database"
	sqlxrepos "github.com/hadirapp/hadir/storage/database/sqlx"
)

func main() {
	conf := core.MustNewConfig()

	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	sdb, err := database.Open(conf)
	errAndDie(err, logger)
	defer func() { _ = sdb.Close() }()
	errAndDie(sdb.Ping(), logger)
	db := sqlx.NewDb(sdb, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), conf)
	attSvc := attendee.NewService(
		sqlxrepos.NewAttendeeRepository(db),
		sqlxrepos.NewLogRepository(db),
		mailSvc,
		conf,
	)

	validate, translator := core.NewValidators()
	user.RegisterValidators(validate, translator)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:        conf.ServerAddress(),
			UserSvc:     usrSvc,
			AttendeeSvc: attSvc,
			Validate:    validate,
			Translator:  translator,
			Logger:      logger,
		},
	)
	app.Start()
}

func errAndDie(err error, logger core.Logger) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
