// Package letter models a pictoswap letter: a fixed number of hand-drawn
// pages on a shared background.
//
// # Composition
//
// A [Composer] is one drawing session. Its pages ([Sheet]) each own a
// [stroke.Model], and all of them draw from a single ink pool. Every sheet
// records the ink it spent, so clearing a page refunds exactly what it used:
//
//	c := letter.NewComposer(letter.DefaultBackground)
//	sheet := c.Current()
//	if sheet.Charge(stroke.DotCost) {
//	    // the dot may be drawn
//	}
//	doc, err := c.Document()
//
// # Wire Format
//
// [Encode] and [Decode] convert a [Document] to and from the JSON carried
// between clients and the server:
//
//	{
//	  "background": "green-letter.png",
//	  "pages": [
//	    [
//	      [
//	        {"type": "dot", "x": 10, "y": 12, "colour": "black", "time": 1700000000000},
//	        {"type": "line", "from_x": 10, "from_y": 12, "x": 14, "y": 15,
//	         "colour": "hsl(120, 100%, 50%)", "time": 1700000000016}
//	      ]
//	    ],
//	    [], [], []
//	  ],
//	  "pageInkUsage": [6, 0, 0, 0]
//	}
//
// Pages are lists of strokes and strokes are lists of segments; the order
// of both is paint order and is preserved exactly. Decoding is strict: an
// unknown segment type, a missing field or a wrong page count rejects the
// whole letter with a MALFORMED_DOCUMENT error.
//
// [ReadJSON], [WriteJSON], [ImportJSON] and [ExportJSON] wrap the codec for
// readers, writers and files.
package letter
