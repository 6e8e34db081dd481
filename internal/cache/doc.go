// Package cache stores synthesized units so an interrupted chapter renders
// faster the next time. It has an in-memory LRU level (L1) and a persistent
// zstd-compressed disk level (L2).
package cache
