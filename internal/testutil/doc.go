// Package testutil provides fixtures shared by package tests: fake Node.js
// release tarballs and a fake download and resolution service.
package testutil
