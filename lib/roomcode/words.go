// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package roomcode

// adjectives is the first half of a room code. Roughly 200 entries, all
// lowercase ASCII with no hyphens (the hyphen is the code separator).
var adjectives = []string{
	"amber", "ancient", "arctic", "autumn", "azure", "balmy", "bold",
	"brave", "breezy", "bright", "brisk", "bronze", "calm", "candid",
	"cheerful", "chilly", "civil", "classic", "clear", "clever",
	"cloudy", "coastal", "cobalt", "copper", "cosmic", "cozy",
	"crimson", "crisp", "curious", "daring", "dapper", "deep", "dewy",
	"dusty", "eager", "early", "earnest", "easy", "electric", "elegant",
	"emerald", "fabled", "fair", "faithful", "fancy", "fearless",
	"festive", "fierce", "fleet", "floral", "fluent", "fond", "fresh",
	"frosty", "gallant", "gentle", "giddy", "gilded", "glad", "gleaming",
	"golden", "graceful", "grand", "grateful", "green", "happy", "hardy",
	"hazel", "hearty", "hidden", "honest", "humble", "indigo", "inner",
	"ivory", "jade", "jolly", "jovial", "keen", "kind", "lively",
	"loyal", "lucid", "lucky", "lunar", "lush", "magenta", "mellow",
	"merry", "mighty", "minty", "misty", "modern", "modest", "mossy",
	"nimble", "noble", "northern", "novel", "oaken", "olive", "opal",
	"open", "orange", "painted", "pale", "patient", "peaceful", "pearly",
	"placid", "plucky", "polar", "polished", "proud", "pure", "quick",
	"quiet", "radiant", "rapid", "rare", "regal", "rosy", "round",
	"royal", "ruby", "rustic", "sable", "saffron", "sage", "sandy",
	"scarlet", "serene", "sharp", "shiny", "silent", "silken", "silver",
	"sincere", "sleek", "smooth", "snowy", "soft", "solar", "solid",
	"southern", "sparkling", "spirited", "spring", "spruce", "stable",
	"starry", "steady", "stellar", "still", "stoic", "stormy", "stout",
	"strong", "sturdy", "subtle", "summer", "sunny", "sweet", "swift",
	"tawny", "teal", "tender", "tidal", "tidy", "timber", "topaz",
	"tranquil", "true", "trusty", "twilight", "umber", "upbeat",
	"valiant", "velvet", "verdant", "vivid", "vocal", "warm", "wavy",
	"western", "whole", "wild", "willing", "windy", "winter", "wise",
	"witty", "wooden", "woolly", "young", "zesty", "zippy", "crystal",
	"dawn", "dusk", "echoing", "evening", "morning", "midnight",
	"harvest", "meadow", "ocean", "prairie", "river", "valley",
}

// nouns is the second half of a room code. Roughly 200 entries.
var nouns = []string{
	"acorn", "alder", "anchor", "apple", "arbor", "arch", "aspen",
	"aster", "badger", "bamboo", "basil", "beacon", "bear", "beech",
	"berry", "birch", "bison", "bloom", "bluebell", "bluff", "boulder",
	"bramble", "breeze", "bridge", "brook", "butte", "cabin", "cactus",
	"canyon", "caribou", "cedar", "cliff", "clover", "comet", "compass",
	"condor", "cosmos", "cove", "crane", "creek", "cricket", "current",
	"cypress", "daisy", "dale", "deer", "delta", "dove", "dune",
	"eagle", "ember", "falcon", "fern", "finch", "fjord", "flint",
	"forest", "fox", "garden", "garnet", "geyser", "glacier", "glade",
	"glen", "grove", "gull", "harbor", "hawk", "hazel", "heather",
	"heron", "hickory", "hill", "hollow", "honey", "horizon", "ibis",
	"inlet", "iris", "island", "ivy", "jasmine", "jasper", "juniper",
	"kestrel", "kite", "lagoon", "lake", "lantern", "larch", "lark",
	"laurel", "lavender", "ledge", "lilac", "lily", "linden", "lotus",
	"lynx", "magnolia", "mallard", "maple", "marble", "marigold",
	"marsh", "meadow", "mesa", "mint", "mirror", "moon", "moose",
	"moss", "mountain", "nectar", "nest", "nightingale", "oak", "oasis",
	"ocean", "orchard", "orchid", "oriole", "osprey", "otter", "owl",
	"palm", "pearl", "pebble", "pelican", "peony", "pheasant", "pine",
	"plover", "plum", "pond", "poplar", "poppy", "prairie", "quail",
	"quartz", "quill", "rain", "raven", "reed", "ridge", "river",
	"robin", "rose", "rowan", "sage", "salmon", "sand", "sapphire",
	"seal", "shell", "shore", "sky", "slate", "snow", "sparrow",
	"spring", "spruce", "star", "stone", "stork", "stream", "summit",
	"sunflower", "swallow", "swan", "sycamore", "tamarack", "teal",
	"terrace", "thistle", "thrush", "tide", "timber", "topaz", "trail",
	"trellis", "trout", "tulip", "tundra", "valley", "vine", "violet",
	"walnut", "warbler", "wave", "wheat", "willow", "wind", "wolf",
	"wren", "yarrow", "zephyr", "zinnia", "bay", "canopy", "clearing",
	"coral", "crest", "dell", "drift", "estuary", "firefly", "foxglove",
}
