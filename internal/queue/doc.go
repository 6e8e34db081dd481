// Package queue buffers synthesized clips between a producer that renders
// ahead and a consumer that plays them in order.
package queue
