// Package delivery emails completed recordings over authenticated SMTP.
//
// Each artifact gets exactly one delivery attempt. The attempt outcome
// distinguishes an unreadable artifact, rejected credentials, and any
// other transport failure from success, because only a successful
// delivery allows the artifact to be deleted. An unreadable artifact
// fails the attempt before any connection is opened.
package delivery
