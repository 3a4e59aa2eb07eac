package handler

import "github.com/gin-gonic/gin"

// Register 挂在已经过 JWT 校验的路由组上
func Register(g gin.IRouter, n *NotificationHandler, p *PushTokenHandler) {
	ng := g.Group("/notification")
	ng.POST("/create", n.Create)
	ng.POST("/createBulk", n.CreateBulk)
	ng.POST("/attendanceBulk", n.AttendanceBulk)
	ng.POST("/list", n.List)
	ng.POST("/tenantList", n.TenantList)
	ng.POST("/unreadCount", n.UnreadCount)
	ng.POST("/markRead", n.MarkRead)
	ng.POST("/markAllRead", n.MarkAllRead)
	ng.POST("/deliveryStatus", n.DeliveryStatus)
	ng.POST("/stats", n.Stats)

	pg := g.Group("/push")
	pg.POST("/registerToken", p.Register)
	pg.POST("/unregisterToken", p.Unregister)
	pg.POST("/settings", p.Settings)
	pg.POST("/updateSettings", p.UpdateSettings)
}
