/*
Package log provides structured logging via zerolog.

A package-global Logger is configured once with Init. Long-running
components get a child logger carrying a "component" field via
WithComponent, so every line a goroutine emits is attributable without
threading a logger through every call.
*/
package log
