package rang

// ModifyImage blurs data (a width*height buffer of 0xAABBGGRR-packed
// pixels, alpha ignored and forced opaque) just enough, column by
// column, to create a population of coefficients that will differ
// between the clear and re-compressed-modified JPEGs without being
// visually obvious, then merges the blur back down onto the original
// at a low opacity. It mutates data in place.
func ModifyImage(width, height int, data []uint32) {
	if width == 0 || height == 0 {
		return
	}

	bluredColumn := make([]uint32, height)
	untouchedColumn := make([]uint32, height)

	for x := 0; x < width; x++ {
		previous := data[x]

		for y := 0; y < height; y++ {
			current := data[width*y+x]

			nextY := y + 1
			if y == height-1 {
				nextY = y
			}
			next := data[width*nextY+x]

			blured := gaussianBlurTriple(previous, current, next)
			data[width*y+x] = blured

			if x == 0 {
				bluredColumn[y] = blured
			} else {
				previousBlured := data[width*y+x-1]
				final := gaussianBlurTriple(bluredColumn[y], previousBlured, blured)

				data[width*y+x-1] = mergeColours(untouchedColumn[y], final)
				bluredColumn[y] = previousBlured
			}

			untouchedColumn[y] = current
			previous = current
		}
	}

	for y := 0; y < height; y++ {
		previousBlured := data[width*y+width-1]
		final := gaussianBlurTriple(bluredColumn[y], previousBlured, previousBlured)

		data[width*y+width-1] = mergeColours(untouchedColumn[y], final)
	}
}

// gaussianBlurTriple applies a fixed [2, 255, 2]/259 kernel to three
// vertically (or horizontally) adjacent 0xAABBGGRR pixels, channel by
// channel, forcing the result opaque.
func gaussianBlurTriple(left, central, right uint32) uint32 {
	result := uint32(0xff000000)

	for i := uint(0); i < 3; i++ {
		l := (left >> (8 * i)) & 0xff
		c := (central >> (8 * i)) & 0xff
		r := (right >> (8 * i)) & 0xff

		v := (129 + c*255 + (l+r)*2) / 259
		result |= v << (8 * i)
	}

	return result
}

// mergeColours composites a lightly weighted foreground (roughly
// 2/255) over an opaque background, channel by channel.
func mergeColours(background, foreground uint32) uint32 {
	const foregroundShare = 2.0 / 255.0
	const backgroundShare = 1 - foregroundShare

	result := uint32(0xff000000)

	for i := uint(0); i < 3; i++ {
		b := float64((background >> (8 * i)) & 0xff)
		f := float64((foreground >> (8 * i)) & 0xff)

		v := uint32(f*foregroundShare + b*backgroundShare + 0.0001)
		result |= v << (8 * i)
	}

	return result
}
