package migration

import (
	"fmt"

	"github.com/damoang/angple-editorial/internal/domain"
	"gorm.io/gorm"
)

// Models lists every table owned by the editorial pipeline
func Models() []interface{} {
	return []interface{}{
		&domain.Article{},
		&domain.Evidence{},
		&domain.Comment{},
		&domain.ActivityLog{},
	}
}

// Run executes AutoMigrate for the editorial tables.
// 테이블 없으면 생성, 있으면 누락된 컬럼/인덱스만 추가
func Run(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("auto migrate %T: %w", m, err)
		}
	}
	return nil
}
