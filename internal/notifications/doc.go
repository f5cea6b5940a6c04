// Package notifications delivers terminal job outcomes over ntfy. With no
// topic configured every notification is a noop.
package notifications
