// Package inference is the HTTP client for the remote inference endpoint:
// the model directory, the confidential chat completion route and the plain
// chat completion route.
//
// Routes
//
//	GET  /v1/nodes/models/{model}           -> {publicKey, stackSmallId}
//	POST /v1/confidential/chat/completions  envelope -> {ciphertext, nonce, responseHash?}
//	POST /v1/chat/completions               request  -> completion
//
// Every call carries "Authorization: Bearer <key>" when a key is configured.
// A non-2xx status is returned as *StatusError.
package inference
