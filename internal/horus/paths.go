package horus

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// Directory convention of a production tree, relative to the project root:
//
//	{Episode}/{Sequence}/{Shot}/{Department}/output/{Shot}_{Department}_{Version}.mov
//	{Episode}/{Sequence}/{Shot}/{Department}/version/{Version}/{Shot}_{Department}_{Version}.{frame}.exr
//	{Episode}/.horus/status/{Sequence}_status.json
//	{Episode}/{Sequence}/{Shot}/.horus/{Shot}_comments.json
//	{Episode}/{Sequence}/{Shot}/.horus/{Shot}_metadata.json
//	.horus/playlists.json
//	{Episode}/{Sequence}/{Shot}/{Department}/annotations/{Version}/{Shot}_{Department}_{Version}.{frame:04d}.png
//
// The functions below only build strings; none of them touch a provider.

const metaDir = ".horus"

// DefaultVersion is assumed when a media file name carries no version token.
const DefaultVersion = "v001"

func MediaDir(episode, sequence, shot, department string) string {
	return path.Join(episode, sequence, shot, department, "output")
}

// ImageVersionsDir holds one folder of rendered frames per version.
func ImageVersionsDir(episode, sequence, shot, department string) string {
	return path.Join(episode, sequence, shot, department, "version")
}

func MediaFileName(shot, department, version string) string {
	return fmt.Sprintf("%s_%s_%s.mov", shot, department, version)
}

func StatusFile(episode, sequence string) string {
	return path.Join(episode, metaDir, "status", sequence+"_status.json")
}

func CommentsFile(episode, sequence, shot string) string {
	return path.Join(episode, sequence, shot, metaDir, shot+"_comments.json")
}

func ShotMetadataFile(episode, sequence, shot string) string {
	return path.Join(episode, sequence, shot, metaDir, shot+"_metadata.json")
}

func PlaylistsFile() string {
	return path.Join(metaDir, "playlists.json")
}

func AnnotationDir(episode, sequence, shot, department, version string) string {
	return path.Join(episode, sequence, shot, department, "annotations", version)
}

// AnnotationFile is the path of the freehand drawing for one frame.
func AnnotationFile(episode, sequence, shot, department, version string, frame int) string {
	name := fmt.Sprintf("%s_%s_%s.%04d.png", shot, department, version, frame)
	return path.Join(AnnotationDir(episode, sequence, shot, department, version), name)
}

var (
	versionPattern = regexp.MustCompile(`(?i)[_-](v\d+)`)
	framePattern   = regexp.MustCompile(`\.(\d+)\.[A-Za-z0-9]+$`)
)

// ParseVersion extracts the version token from a media file name, lower-cased.
// Names without one get DefaultVersion.
func ParseVersion(fileName string) string {
	m := versionPattern.FindStringSubmatch(fileName)
	if m == nil {
		return DefaultVersion
	}
	return strings.ToLower(m[1])
}

// ParseFrame extracts the frame number from names like "x.1001.exr".
func ParseFrame(fileName string) (int, bool) {
	m := framePattern.FindStringSubmatch(fileName)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// versionNumber returns the numeric part of a version token, or -1.
func versionNumber(version string) int {
	if len(version) < 2 || (version[0] != 'v' && version[0] != 'V') {
		return -1
	}
	n, err := strconv.Atoi(version[1:])
	if err != nil {
		return -1
	}
	return n
}
