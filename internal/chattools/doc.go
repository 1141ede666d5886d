// Package chattools holds the tools the gptkit CLI offers to the model.
// `gptkit make-tool` writes new skeletons here by default; add them to
// Register to make them available to `gptkit chat --tool`.
package chattools
