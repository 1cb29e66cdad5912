package models

import (
	"fmt"

	"github.com/fatih/color"
)

var IsAnsiDisabled = false

var HighlightString = func(a ...interface{}) string {
	if IsAnsiDisabled {
		return fmt.Sprint(a...)
	}
	return color.New(color.FgYellow).SprintFunc()(a...)
}

var HighlightPassingString = func(a ...interface{}) string {
	if IsAnsiDisabled {
		return fmt.Sprint(a...)
	}
	return color.New(color.FgGreen).SprintFunc()(a...)
}

var HighlightGrayString = func(a ...interface{}) string {
	if IsAnsiDisabled {
		return fmt.Sprint(a...)
	}
	return color.New(color.FgHiBlack).SprintFunc()(a...)
}
