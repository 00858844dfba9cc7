/*
Package events provides an in-process publish/subscribe broker for
registry and federation events.

Peer announcements, health transitions, dataset changes and ingests are
published as typed events. Subscribers receive them on buffered channels;
a full subscriber buffer drops the event rather than blocking the broker.
The server subscribes at startup and mirrors every event into the
structured log.
*/
package events
