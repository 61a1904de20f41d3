package styles

import (
	"path"
	"strings"
)

// Tip: To find icons use https://github.com/loichyan/nerdfix

// Directory icons
var (
	IconFolderOpen   = " "
	IconFolderClosed = " "
)

// File type icons
var (
	IconFileDefault  = " "
	IconFileGo       = " "
	IconFileJS       = "\U000F031E " // 󰌞
	IconFileTS       = "\U000F06E6 " // 󰛦
	IconFilePython   = " "
	IconFileMarkdown = " "
	IconFileJSON     = " "
	IconFileJava     = " "
	IconFileC        = " "
	IconFileCPP      = " "
	IconFileRust     = " "
	IconFileShell    = " "
	IconFileHTML     = " "
	IconFileCSS      = " "
	IconFileMakefile = " "
)

var iconsByExt = map[string]string{
	".go":   IconFileGo,
	".js":   IconFileJS,
	".jsx":  IconFileJS,
	".ts":   IconFileTS,
	".tsx":  IconFileTS,
	".py":   IconFilePython,
	".md":   IconFileMarkdown,
	".json": IconFileJSON,
	".java": IconFileJava,
	".c":    IconFileC,
	".h":    IconFileC,
	".cpp":  IconFileCPP,
	".cc":   IconFileCPP,
	".hpp":  IconFileCPP,
	".rs":   IconFileRust,
	".sh":   IconFileShell,
	".bash": IconFileShell,
	".html": IconFileHTML,
	".css":  IconFileCSS,
}

// FileIcon returns the icon for a file path.
func FileIcon(p string) string {
	if strings.EqualFold(path.Base(p), "makefile") {
		return IconFileMakefile
	}
	if icon, ok := iconsByExt[strings.ToLower(path.Ext(p))]; ok {
		return icon
	}
	return IconFileDefault
}

// DirIcon returns the icon for a directory.
func DirIcon(expanded bool) string {
	if expanded {
		return IconFolderOpen
	}
	return IconFolderClosed
}
