package http

// VerifyWorksSignature exposes the signature check for tests
var VerifyWorksSignature = verifyWorksSignature
