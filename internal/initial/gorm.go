package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"SchoolLink/internal/config"
	notificationEntity "SchoolLink/internal/modules/notification/domain/entity"
	schoolEntity "SchoolLink/internal/modules/school/domain/entity"
	"SchoolLink/pkg/zlog"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var GormDB *gorm.DB

func init() {
	conf := config.GetConfig()
	dbName := conf.MysqlConfig.DatabaseName
	if dbName == "" {
		dbName = conf.AppName
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		conf.MysqlConfig.User, conf.MysqlConfig.Password, conf.MysqlConfig.Host, conf.MysqlConfig.Port, dbName)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	var err error
	// TranslateError 让唯一索引冲突统一表现为 gorm.ErrDuplicatedKey
	GormDB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		zlog.Fatal(err.Error())
	}

	models := append(schoolEntity.Models(), notificationEntity.Models()...)
	if err = GormDB.AutoMigrate(models...); err != nil {
		zlog.Fatal(err.Error())
	}
}
