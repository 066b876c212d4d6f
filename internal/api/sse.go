package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/aria2deck/internal/event"
	"github.com/rs/zerolog/log"
)

// SSEHandler 处理 Server-Sent Events 连接
func (h *handlers) SSEHandler(c *gin.Context) {
	// 1. 设置 Header
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// 2. 创建一个 Channel 来接收事件
	clientChan := make(chan event.Event, 32)
	done := make(chan struct{})
	defer close(done)

	// 每个订阅有自己的投递协程，这里阻塞只会拖慢本客户端，同一主题的事件不丢也不乱序
	bridgeHandler := func(e event.Event) {
		select {
		case clientChan <- e:
		case <-done:
		}
	}

	// 3. 订阅所有会话事件
	subIDs := make(map[event.EventType]string)
	for _, t := range event.AllTypes {
		subIDs[t] = h.Bus.Subscribe(t, bridgeHandler)
	}
	defer func() {
		for t, id := range subIDs {
			h.Bus.Unsubscribe(t, id)
		}
		log.Debug().Msg("SSE client disconnected")
	}()

	// 4. 发送初始连接成功消息
	c.SSEvent("message", "connected")
	c.Writer.Flush()

	// 5. 循环推送，直到客户端断开
	ctx := c.Request.Context()
	for {
		select {
		case evt := <-clientChan:
			data, err := json.Marshal(evt.Payload)
			if err != nil {
				log.Error().Err(err).Msg("SSE JSON Marshal error")
				continue
			}
			// 事件名即为 Topic
			c.SSEvent(string(evt.Type), string(data))
			c.Writer.Flush()

		case <-ctx.Done():
			return
		}
	}
}
