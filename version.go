package sidecar

// Version is the current version of the go-sidecar library
const Version = "1.0.0"
