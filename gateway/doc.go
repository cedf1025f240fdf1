// Package gateway is the HTTP client for the external identity provider.
//
// Every operation returns a normalised [Result] and never an error: transport
// failures become [KindNetwork], non-2xx or success:false replies become
// [KindRejected], and bodies that cannot be decoded become [KindMalformed].
// The client performs exactly one attempt per call.
//
// Login replies are normalised here. The user record may arrive under "data",
// "result" or "user", optionally wrapping a nested "user" with a sibling
// "token"; callers only ever see [LoginResult].
package gateway
