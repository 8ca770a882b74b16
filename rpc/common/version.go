package common

// Version is the version of the server and the protocol
const Version = "0.4.0"
