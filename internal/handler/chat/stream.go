/**
 * 接口层:SSE流下发
 * @author: sun977
 * @date: 2026.03.18
 * @description: 把中继发射器的事件序列写成下游SSE响应
 */
package chat

import (
	"io"

	"astronhub/internal/service/relay"

	"github.com/gin-gonic/gin"
)

// streamToClient 消费发射器事件并写SSE响应，直到收到结束事件或通道关闭
// 事件顺序与发射器一致，finished=true的事件是最后一条
func streamToClient(c *gin.Context, sid string, em *relay.Emitter) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Sid", sid)

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-em.Events():
			if !ok {
				return false
			}
			c.SSEvent("message", ev)
			return !ev.Finished
		case <-c.Request.Context().Done():
			// 客户端断开，停止写入，上游中继由停止信号或超时收尾
			return false
		}
	})
}
