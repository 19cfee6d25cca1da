package controllers

import (
	"net/http"
	"time"

	"project-report-api/config"
	"project-report-api/models"

	"github.com/gin-gonic/gin"
)

// GetDashboardStats returns the reviewer dashboard rollups: account counts,
// report totals and a six-month submission series with missing months
// zero-filled.
func GetDashboardStats(c *gin.Context) {
	var (
		activeStudents   int64
		activeTeachers   int64
		totalReports     int64
		pendingApprovals int64
	)

	db := config.DB
	if err := db.Model(&models.User{}).
		Where("role = ? AND delete_at IS NULL", models.RoleStudent).
		Count(&activeStudents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch statistics"})
		return
	}
	db.Model(&models.User{}).
		Where("role = ? AND delete_at IS NULL", models.RoleTeacher).
		Count(&activeTeachers)
	db.Model(&models.Report{}).Count(&totalReports)
	db.Model(&models.Report{}).
		Where("review_status = ?", models.StatusPending).
		Count(&pendingApprovals)

	now := time.Now()
	sixMonthsAgo := time.Date(now.Year(), now.Month()-5, 1, 0, 0, 0, 0, now.Location())

	type monthlyRow struct {
		Year    int   `gorm:"column:yr"`
		Month   int   `gorm:"column:mo"`
		Total   int64 `gorm:"column:total"`
		Pending int64 `gorm:"column:pending"`
	}
	var rows []monthlyRow
	db.Model(&models.Report{}).
		Select("YEAR(submission_date) AS yr, MONTH(submission_date) AS mo, COUNT(*) AS total, SUM(CASE WHEN review_status = ? THEN 1 ELSE 0 END) AS pending", models.StatusPending).
		Where("submission_date >= ?", sixMonthsAgo).
		Group("yr, mo").
		Order("yr, mo").
		Scan(&rows)

	byMonth := make(map[[2]int]monthlyRow, len(rows))
	for _, row := range rows {
		byMonth[[2]int{row.Year, row.Month}] = row
	}

	monthlyStats := make([]gin.H, 0, 6)
	for i := 5; i >= 0; i-- {
		date := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		row := byMonth[[2]int{date.Year(), int(date.Month())}]
		monthlyStats = append(monthlyStats, gin.H{
			"month":   date.Format("Jan"),
			"year":    date.Year(),
			"total":   row.Total,
			"pending": row.Pending,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"active_students":   activeStudents,
		"active_teachers":   activeTeachers,
		"reports_generated": totalReports,
		"pending_approvals": pendingApprovals,
		"monthly_stats":     monthlyStats,
	})
}
