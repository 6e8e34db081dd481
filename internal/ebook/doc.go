// Package ebook loads EPUB, PDF and Markdown books into one chapter list
// and decides which chapters are read by default.
package ebook
