package main

//go:generate glslc shaders/quad.vert -o shaders/quad.vert.spv
//go:generate glslc shaders/quad.frag -o shaders/quad.frag.spv
