// Package asset turns candidate image URLs into stored assets.
//
// Two processors implement wallpaper.AssetProcessor:
//
//   - Local downloads the image, normalizes it to JPEG and writes it through a
//     wallpaper.BlobStore (filesystem, GCS or memory).
//   - Rehost downloads the image and re-uploads it to an image host, recording
//     the hosted URL.
//
// Both name files with a Namer so names stay unique within one process.
package asset
