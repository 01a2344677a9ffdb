package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/utils"
)

// PageViewRecorder counts successful GETs of post detail routes (those with a :slug param),
// per day in loc and per path.
func PageViewRecorder(db *gorm.DB, loc *time.Location) gin.HandlerFunc {
	if loc == nil {
		loc = time.Local
	}
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != "GET" {
			return
		}
		if status := c.Writer.Status(); status < 200 || status >= 300 {
			return
		}
		if !strings.Contains(c.FullPath(), ":slug") {
			return
		}

		now := time.Now().In(loc)
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		err := db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.PageView{Date: datatypes.Date(day), Path: c.Request.URL.Path, Count: 1}).Error
		if err != nil {
			utils.Sugar.Debugf("record page view failed path=%s err=%v", c.Request.URL.Path, err)
		}
	}
}
