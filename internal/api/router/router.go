package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edusched/backend/config"
	"edusched/backend/internal/api/handler"
	"edusched/backend/internal/api/middleware"
	"edusched/backend/pkg/jwt"
	"edusched/backend/pkg/redis"
)

// maxRequestBodyBytes 请求体上限，需容纳学生批量导入的 Excel 文件
const maxRequestBodyBytes = 8 << 20

// loginRateLimit 登录接口限流：每 IP 每分钟最多尝试次数
const loginRateLimit = 10

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxRequestBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, loginRateLimit, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户管理（仅 admin）
			users := authorized.Group("/users", middleware.RoleAuth("admin"))
			{
				users.POST("", h.User.CreateUser)
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.DELETE("/:id", h.User.DeleteUser)
				users.PUT("/:id/role", h.User.AssignRole)
				users.POST("/:id/reset-password", h.User.ResetPassword)
			}

			// 科目模块
			subjects := authorized.Group("/subjects")
			{
				subjects.GET("", h.Subject.ListSubjects)
				subjects.GET("/:id", h.Subject.GetSubject)
				subjects.POST("", middleware.RoleAuth("admin"), h.Subject.CreateSubject)
				subjects.PUT("/:id", middleware.RoleAuth("admin"), h.Subject.UpdateSubject)
				subjects.DELETE("/:id", middleware.RoleAuth("admin"), h.Subject.DeleteSubject)
			}

			// 教师模块
			teachers := authorized.Group("/teachers")
			{
				teachers.GET("", h.Teacher.ListTeachers)
				teachers.GET("/:id", h.Teacher.GetTeacher)
				teachers.GET("/:id/timetable", h.Timetable.GetTeacherTimetable)
				teachers.GET("/:id/export/ics", h.Export.ExportTeacherICS)
				teachers.POST("", middleware.RoleAuth("admin"), h.Teacher.CreateTeacher)
				teachers.PUT("/:id", middleware.RoleAuth("admin"), h.Teacher.UpdateTeacher)
				teachers.DELETE("/:id", middleware.RoleAuth("admin"), h.Teacher.DeleteTeacher)
			}

			// 学生模块
			students := authorized.Group("/students")
			{
				students.GET("", h.Student.ListStudents)
				students.GET("/:id", h.Student.GetStudent)
				students.POST("", middleware.RoleAuth("admin"), h.Student.CreateStudent)
				students.PUT("/:id", middleware.RoleAuth("admin"), h.Student.UpdateStudent)
				students.DELETE("/:id", middleware.RoleAuth("admin"), h.Student.DeleteStudent)
				students.POST("/import", middleware.RoleAuth("admin"), h.Student.ImportStudents)
			}

			// 教学班模块（含生命周期、课次安排与导出）
			groups := authorized.Group("/course-groups")
			{
				groups.GET("", h.Group.ListGroups)
				groups.GET("/:id", h.Group.GetGroup)
				groups.GET("/:id/sessions", h.Session.ListGroupSessions)
				groups.GET("/:id/timetable", h.Timetable.GetGroupTimetable)
				groups.GET("/:id/export/xlsx", h.Export.ExportGroupExcel)
				groups.GET("/:id/export/ics", h.Export.ExportGroupICS)
				groups.POST("", middleware.RoleAuth("admin"), h.Group.CreateGroup)
				groups.PUT("/:id", middleware.RoleAuth("admin"), h.Group.UpdateGroup)
				groups.PUT("/:id/status", middleware.RoleAuth("admin"), h.Group.ChangeGroupStatus)
				groups.PUT("/:id/teacher", middleware.RoleAuth("admin"), h.Group.AssignGroupTeacher)
				groups.DELETE("/:id", middleware.RoleAuth("admin"), h.Group.DeleteGroup)
				groups.POST("/:id/sessions", middleware.RoleAuth("admin"), h.Session.CreateSession)
			}

			// 课次模块（跨班按 ID 操作）
			sessions := authorized.Group("/sessions")
			{
				sessions.GET("/:id", h.Session.GetSession)
				sessions.PUT("/:id", middleware.RoleAuth("admin"), h.Session.UpdateSession)
				sessions.DELETE("/:id", middleware.RoleAuth("admin"), h.Session.DeleteSession)
			}

			// 报名模块（报名与取消为日常操作，缴费状态仅 admin）
			enrollments := authorized.Group("/enrollments")
			{
				enrollments.POST("", h.Enrollment.EnrollStudent)
				enrollments.GET("", h.Enrollment.ListEnrollments)
				enrollments.GET("/export/xlsx", h.Export.ExportOccupancyExcel)
				enrollments.GET("/:id", h.Enrollment.GetEnrollment)
				enrollments.PUT("/:id/payment-status", middleware.RoleAuth("admin"), h.Enrollment.UpdatePaymentStatus)
				enrollments.DELETE("/:id", h.Enrollment.CancelEnrollment)
			}

			// 教室模块（只读视图）
			classrooms := authorized.Group("/classrooms")
			{
				classrooms.GET("/occupancy", h.Timetable.GetClassroomOccupancy)
				classrooms.GET("/:name/timetable", h.Timetable.GetClassroomTimetable)
			}
		}
	}

	return r
}
