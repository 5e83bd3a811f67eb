package main

import (
	vbruntime "github.com/gosuda/vbjson/runtime"
)

type vmStartedMsg struct {
	err error
}

type vmOutputMsg struct {
	out vbruntime.Output
}

type commandDoneMsg struct {
	line string
	out  string
	err  error
}

type vmPollMsg struct{}
