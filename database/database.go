package database

import (
	"fmt"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	logger2 "gorm.io/gorm/logger"

	"terraform-logviewer-go/logentry"
	"terraform-logviewer-go/sentrylog"
)

var (
	DBConn *gorm.DB
)

func InitDatabase() {
	var err error
	mysqlCredentials := fmt.Sprintf(
		"%s:%s@%s(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&interpolateParams=true",
		os.Getenv("MYSQL_USER"),
		os.Getenv("MYSQL_PASSWORD"),
		os.Getenv("MYSQL_PROTOCOL"),
		os.Getenv("MYSQL_HOST"),
		os.Getenv("MYSQL_PORT"),
		os.Getenv("MYSQL_DBNAME"),
	)

	DBConn, err = gorm.Open(mysql.Open(mysqlCredentials), &gorm.Config{
		Logger: sentrylog.New(sentrylog.Config{
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
			LogLevel:                  logger2.Warn,
		}),
	})

	if err != nil {
		panic("failed to connect database")
	}

	// We own this schema, unlike the rest of the infrastructure.
	if err = DBConn.AutoMigrate(&logentry.LogEntry{}, &logentry.LogBody{}); err != nil {
		panic("failed to migrate log tables")
	}
}
