// Package container reads and writes the metadata-bearing parts of raster
// image containers without touching pixel data.
//
// PNG files carry generation text in a "parameters" text chunk (tEXt, zTXt
// or iTXt). JPEG and WebP files carry it in EXIF: an APP1 segment or an
// EXIF RIFF chunk respectively, both holding TIFF-structured tags. Readers
// resolve every slot into a textdecode.Blob with its tag kind, so decoding
// never has to know which container a blob came from.
package container
