// Package ws implements the websocket hub that pushes live dashboard events.
//
// Hub satisfies the service publisher: every saved snapshot, finished
// analysis and weight change is broadcast to all connected clients as
//
//	{
//	  "event": "snapshot.saved",
//	  "data":  { /* the snapshot, analysis record or weights */ },
//	  "at":    "2024-06-01T12:00:00Z"
//	}
//
// With WithOverview set, a client receives an "overview" event as soon as it
// connects. Slow clients whose buffer fills up are disconnected. The upgrader
// accepts all origins; apply CORS at the reverse proxy.
package ws
