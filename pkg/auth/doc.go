/*
Package auth resolves inbound bearer tokens into per-request access maps.

Two modes exist. Gateway mode trusts an upstream OIDC gateway to have
verified the JWT; the resolver pulls iss and preferred_username from the
payload and looks the identity up in the registry's access-rule table.
No-auth mode grants full tier on every local dataset and is meant for
development or single-institution deployments behind a trusted proxy.

A missing token in gateway mode fails the request before federation
fan-out. A malformed token or unknown identity is not an error: it
degrades to an empty access map, so tiered operations report Unauthorized
while the federation machinery keeps running.
*/
package auth
