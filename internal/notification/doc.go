// Package notification turns domain events into push notifications.
//
// EventRouter decides who should hear about an event, PayloadRenderer builds
// the localized payload, TokenDirectory finds the recipient's delivery token
// and Dispatcher sends it through the push transport, isolating every
// recipient's failure from the others.
package notification
