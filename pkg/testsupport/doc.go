// Package testsupport holds golden-file and fixture helpers shared by the
// package tests.
package testsupport
