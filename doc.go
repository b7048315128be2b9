/*
Package cfddns keeps a set of Cloudflare A records pointed at the machine's public IPv4 address.

Usage will always start with [cfddns.New],
which returns a [Client] for a DNS [Provider] such as Cloudflare (see [UsingCloudflare]).
[Client.Setup] turns hostnames into [DesiredHost] values once at startup,
and a [Scheduler] runs [Client.RunPass] on a fixed interval.

Each pass looks up the current address, lists the A records of every zone involved once,
and then creates missing records and updates stale ones.
Records are written with an automatic TTL and are never proxied.
A pass that changes something or fails produces a notable [ChangeLog],
which the Scheduler hands to its [Notifier].
*/
package cfddns
