// Package sse streams execution events to HTTP clients as Server-Sent Events.
//
// A Hub fans frames out to the clients subscribed to a topic. Each user has
// one topic, so a client that opens the stream before calling execute sees
// the started and finished events of its own runs.
//
//	comp := sse.NewComponent(cfg, "/api/v1/events", log)
//	publisher := events.Multi(logPublisher, sse.NewEventPublisher(comp.Hub()))
//	router.GET("/api/v1/events", func(c *gin.Context) {
//	    comp.Hub().Serve(c.Writer, c.Request, sse.UserTopic(userID))
//	})
package sse
