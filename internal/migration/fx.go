package migration

import (
	"github.com/qualitrace/qualitrace/internal/config"
	"github.com/qualitrace/qualitrace/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if cfg.DefaultCompanyID != 0 {
			if err := seed.EnsureDefaultCompanyWithID(conn, cfg.DefaultCompanyID); err != nil {
				return err
			}
		} else {
			if err := seed.EnsureDefaultCompany(conn); err != nil {
				return err
			}
		}
		if cfg.Bootstrap.EnsureDefaultCompanyAndUser {
			return seed.EnsureDefaultCompanyAndAdmin(conn)
		}
		return nil
	}),
)
