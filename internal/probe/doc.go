// Package probe inspects image assets: content-sniffed format and pixel
// dimensions. Raster headers are read with image.DecodeConfig (no full
// decode); SVG dimensions come from the root element's width/height or,
// failing that, its viewBox. JPEG dimensions account for the EXIF
// orientation so they match what the codec produces after auto-orienting.
package probe
