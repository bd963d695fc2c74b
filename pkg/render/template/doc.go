// Package template defines the template engine seam used by the HTML renderer.
// Engines load named templates from an fs.FS, render them with arbitrary data,
// and accept extra filters and global context at runtime.
package template
