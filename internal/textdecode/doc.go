// Package textdecode turns raw metadata bytes into candidate strings.
//
// Generators and converters store the same generation text in several
// incompatible ways: UTF-8 in PNG text chunks, UTF-16LE behind an
// "UNICODE\x00" marker in EXIF UserComment, plain bytes in
// ImageDescription, and occasionally legacy Latin-1 or GBK. Decode runs one
// fixed, ordered table of lossy decoders over a blob and returns every
// candidate; it never fails. Choosing between candidates is left to the
// caller's validation step, guided by the per-kind Priority order.
package textdecode
